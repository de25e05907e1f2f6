package audit

import (
	"testing"

	"github.com/stimguard/stimguard/internal/model"
)

func benchLog(b *testing.B, n int) *Log {
	b.Helper()
	l := NewLog("kernel-bench", "limits-bench")
	req := model.ActuationRequest{DeviceClass: model.ClassRetinal, Intensity: 0.01, RepetitionRate: 10, DutyCycle: 0.5}
	result := model.SafetyCheckResult{OK: true, Status: model.StatusSafe}
	for i := 0; i < n; i++ {
		if _, err := l.Append(req, result, model.Allow); err != nil {
			b.Fatal(err)
		}
	}
	return l
}

func BenchmarkAppend(b *testing.B) {
	l := NewLog("kernel-bench", "limits-bench")
	req := model.ActuationRequest{DeviceClass: model.ClassRetinal, Intensity: 0.01, RepetitionRate: 10, DutyCycle: 0.5}
	result := model.SafetyCheckResult{OK: true, Status: model.StatusSafe}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := l.Append(req, result, model.Allow); err != nil {
			b.Fatal(err)
		}
	}
}

func benchVerify(b *testing.B, n int) {
	l := benchLog(b, n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if v := l.Verify(); !v.OK {
			b.Fatalf("invalid chain: %s at %d", v.Reason, v.Index)
		}
	}
}

func BenchmarkVerify_1000(b *testing.B) {
	benchVerify(b, 1000)
}

func BenchmarkVerify_10000(b *testing.B) {
	benchVerify(b, 10000)
}
