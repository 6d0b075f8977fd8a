package sim

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Uninitialized, "uninitialized"},
		{Initialized, "initialized"},
		{Running, "running"},
		{Paused, "paused"},
		{Stopped, "stopped"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestConfig_Dt(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want float64
	}{
		{"default", DefaultConfig(), 1.0 / 60.0},
		{"hourly", Config{TickRate: 1, TimeScale: 3600}, 3600},
		{"scaled", Config{TickRate: 30, TimeScale: 86400}, 2880},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Dt(); got != tt.want {
				t.Errorf("Dt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"default", func(*Config) {}, true},
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }, false},
		{"negative time scale", func(c *Config) { c.TimeScale = -1 }, false},
		{"negative softening", func(c *Config) { c.Softening = -1 }, false},
		{"zero substeps", func(c *Config) { c.MaxSubsteps = 0 }, false},
		{"zero G", func(c *Config) { c.G = 0 }, false},
		{"unknown integrator", func(c *Config) { c.Integrator = "yoshida" }, false},
		{"unknown evaluator", func(c *Config) { c.Evaluator = "pm" }, false},
		{"unknown collision mode", func(c *Config) { c.CollisionMode = "bounce" }, false},
		{"barnes-hut", func(c *Config) { c.Evaluator = "barneshut"; c.Theta = 0.7 }, true},
		{"adaptive", func(c *Config) { c.Integrator = "rk45"; c.Tolerance = 1e-10 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
