package model

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestParseDeviceClassFailsClosed(t *testing.T) {
	for _, known := range KnownClasses {
		if _, ok := ParseDeviceClass(string(known)); !ok {
			t.Errorf("known class %q rejected", known)
		}
	}
	for _, s := range []string{"", "unregistered_device", "ECOG", "retinal "} {
		if _, ok := ParseDeviceClass(s); ok {
			t.Errorf("unknown class %q accepted", s)
		}
	}
}

func TestDecisionForMatchesOK(t *testing.T) {
	if DecisionFor(SafetyCheckResult{OK: true, Status: StatusSafe}) != Allow {
		t.Fatal("ok result must be ALLOW")
	}
	for _, status := range []Status{StatusLimitViolation, StatusUnknownDevice, StatusInvalidInput} {
		if DecisionFor(SafetyCheckResult{OK: false, Status: status}) != Reject {
			t.Fatalf("status %s must be REJECT", status)
		}
	}
}

func TestRequestJSONRoundTripsNonFinite(t *testing.T) {
	req := ActuationRequest{
		DeviceClass:    ClassRetinal,
		Intensity:      math.NaN(),
		RepetitionRate: math.Inf(1),
		DutyCycle:      math.Inf(-1),
		ChargePerArea:  0.5,
		Cem43Dose:      0.1,
		Impedance:      1.0,
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request with non-finite fields: %v", err)
	}
	if !strings.Contains(string(data), `"NaN"`) {
		t.Fatalf("expected NaN carried as string, got %s", data)
	}

	var back ActuationRequest
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !math.IsNaN(back.Intensity) || !math.IsInf(back.RepetitionRate, 1) || !math.IsInf(back.DutyCycle, -1) {
		t.Fatalf("non-finite fields not preserved: %+v", back)
	}
	if back.ChargePerArea != 0.5 || back.Impedance != 1.0 {
		t.Fatalf("finite fields not preserved: %+v", back)
	}
}

func TestRequestJSONFieldOrderIsStable(t *testing.T) {
	data, err := json.Marshal(ActuationRequest{DeviceClass: ClassDBS})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"device_class":"dbs","intensity":0,"repetition_rate":0,"duty_cycle":0,` +
		`"charge_per_area":0,"cem43_dose":0,"impedance":0}`
	if string(data) != want {
		t.Fatalf("field order changed:\n got %s\nwant %s", data, want)
	}
}
