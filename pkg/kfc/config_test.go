package kfc

import "testing"

func TestWaitConfigApply(t *testing.T) {
	w := WaitConfig{MinSeconds: 10, MaxSeconds: 600, MaxConsecutiveTimeouts: 3}

	tests := []struct {
		name                string
		raw                 float64
		consecutiveTimeouts int
		want                float64
	}{
		{"non-positive request yields no wait", 0, 0, 0},
		{"negative request yields no wait", -5, 0, 0},
		{"too many prior timeouts yields no wait", 120, 3, 0},
		{"below floor clamps up", 2, 0, 10},
		{"above ceiling clamps down", 10000, 0, 600},
		{"within range passes through", 120, 0, 120},
		{"just under the timeout threshold still clamps normally", 120, 2, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Apply(tt.raw, tt.consecutiveTimeouts); got != tt.want {
				t.Errorf("Apply(%v, %v) = %v, want %v", tt.raw, tt.consecutiveTimeouts, got, tt.want)
			}
		})
	}
}

func TestParseConfigOverlaysDefaults(t *testing.T) {
	yaml := []byte("wait:\n  min_seconds: 5\n")
	cfg, err := ParseConfig(yaml)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Wait.MinSeconds != 5 {
		t.Errorf("Wait.MinSeconds = %v, want 5 (overridden)", cfg.Wait.MinSeconds)
	}
	if cfg.Wait.MaxSeconds != 600 {
		t.Errorf("Wait.MaxSeconds = %v, want 600 (default preserved)", cfg.Wait.MaxSeconds)
	}
	if cfg.Proactive.TriggerProbability != 0.3 {
		t.Errorf("Proactive.TriggerProbability = %v, want 0.3 (default preserved)", cfg.Proactive.TriggerProbability)
	}
}
