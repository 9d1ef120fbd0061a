package progress

import (
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{name: "valid", event: Event{Plan: "p", Criterion: "c", State: StatePending, TS: now}},
		{name: "missing plan", event: Event{Criterion: "c", State: StatePending, TS: now}, wantErr: true},
		{name: "missing criterion", event: Event{Plan: "p", State: StatePending, TS: now}, wantErr: true},
		{name: "bad state", event: Event{Plan: "p", Criterion: "c", State: "done", TS: now}, wantErr: true},
		{name: "missing ts", event: Event{Plan: "p", Criterion: "c", State: StatePending}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsUnscored(t *testing.T) {
	if IsUnscored(StateScored) || IsUnscored(StateRunning) {
		t.Error("scored and running are not unscored")
	}
	if !IsUnscored(StateTimeout) || !IsUnscored(StateInvalidInput) || !IsUnscored(StateBackendError) {
		t.Error("failure states are unscored")
	}
}
