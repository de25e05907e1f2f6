package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// auditFloat carries request values across the JSON boundary. JSON has no
// representation for IEEE-754 specials, but a malformed request must still
// be recorded verbatim in the decision log, so NaN and the infinities are
// encoded as strings.
type auditFloat float64

func (f auditFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (f *auditFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = auditFloat(math.NaN())
		case "+Inf":
			*f = auditFloat(math.Inf(1))
		case "-Inf":
			*f = auditFloat(math.Inf(-1))
		default:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid numeric value %q", s)
			}
			*f = auditFloat(v)
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = auditFloat(v)
	return nil
}

// requestWire fixes the serialized field order of ActuationRequest.
type requestWire struct {
	DeviceClass    DeviceClass `json:"device_class"`
	Intensity      auditFloat  `json:"intensity"`
	RepetitionRate auditFloat  `json:"repetition_rate"`
	DutyCycle      auditFloat  `json:"duty_cycle"`
	ChargePerArea  auditFloat  `json:"charge_per_area"`
	Cem43Dose      auditFloat  `json:"cem43_dose"`
	Impedance      auditFloat  `json:"impedance"`
}

// MarshalJSON encodes the request with non-finite values preserved, so
// hashing a log record never fails on malformed input.
func (r ActuationRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestWire{
		DeviceClass:    r.DeviceClass,
		Intensity:      auditFloat(r.Intensity),
		RepetitionRate: auditFloat(r.RepetitionRate),
		DutyCycle:      auditFloat(r.DutyCycle),
		ChargePerArea:  auditFloat(r.ChargePerArea),
		Cem43Dose:      auditFloat(r.Cem43Dose),
		Impedance:      auditFloat(r.Impedance),
	})
}

// UnmarshalJSON accepts both plain numbers and the string forms emitted by
// MarshalJSON.
func (r *ActuationRequest) UnmarshalJSON(data []byte) error {
	var w requestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = ActuationRequest{
		DeviceClass:    w.DeviceClass,
		Intensity:      float64(w.Intensity),
		RepetitionRate: float64(w.RepetitionRate),
		DutyCycle:      float64(w.DutyCycle),
		ChargePerArea:  float64(w.ChargePerArea),
		Cem43Dose:      float64(w.Cem43Dose),
		Impedance:      float64(w.Impedance),
	}
	return nil
}
