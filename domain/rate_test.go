package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Rate
		wantErr error
	}{
		{name: "zero", in: "0", want: 0},
		{name: "one", in: "1.00", want: RateOne},
		{name: "two digits", in: "0.15", want: 1500},
		{name: "one digit", in: "0.2", want: 2000},
		{name: "trailing zero", in: "0.100", want: 1000},
		{name: "too precise", in: "0.125", wantErr: ErrRatePrecision},
		{name: "negative", in: "-0.10", wantErr: ErrRateRange},
		{name: "above one", in: "1.01", wantErr: ErrRateRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRate(decimal.RequireFromString(tt.in))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if !IsDomainError(err) {
					t.Fatalf("expected domain error, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRateStringRoundTrip(t *testing.T) {
	r := MustRate("0.05")
	if r.String() != "0.05" {
		t.Fatalf("expected 0.05, got %s", r.String())
	}

	back, err := ParseRateString(r.String())
	if err != nil || back != r {
		t.Fatalf("round trip failed: %v %v", back, err)
	}
}

func TestSumRatesIsExact(t *testing.T) {
	total := SumRates(MustRate("0.10"), MustRate("0.20"), MustRate("0.70"))
	if total != RateOne {
		t.Fatalf("expected exactly 1.00, got %s", total)
	}

	raw, err := json.Marshal(struct {
		Total Rate `json:"total"`
	}{total})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"total":1.00}` {
		t.Errorf("unexpected json %s", raw)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	nf := &NotFoundError{Resource: "user quota", Key: "1:2", Reason: ErrUserExhausted}
	if !errors.Is(nf, ErrUserExhausted) {
		t.Errorf("not found error should unwrap to its reason")
	}
	if !IsNotFound(nf) {
		t.Errorf("expected IsNotFound")
	}

	cause := errors.New("dial tcp: refused")
	se := NewSystemError(cause)
	if se.Error() != GenericSystemMessage {
		t.Errorf("system error must hide the cause, got %q", se.Error())
	}
	if !errors.Is(se, cause) {
		t.Errorf("system error should keep the cause")
	}
}
