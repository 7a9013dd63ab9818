package strategy

import (
	"testing"

	"coinpilot/internal/models"
)

func sig(action models.Action, conf float64) models.Signal {
	return models.Signal{Symbol: "BTCUSDT", Action: action, Confidence: conf}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		signals    []models.Signal
		configured int
		wantAction models.Action
		wantConf   float64
	}{
		{
			name:       "single strong buy dampened by uncorroborated intervals",
			signals:    []models.Signal{sig(models.ActionBuy, 0.9), sig(models.ActionNone, 0), sig(models.ActionNone, 0)},
			configured: 3,
			wantAction: models.ActionNone,
			wantConf:   0.3,
		},
		{
			name:       "corroborated buys trade",
			signals:    []models.Signal{sig(models.ActionBuy, 0.9), sig(models.ActionBuy, 0.8), sig(models.ActionBuy, 0.7)},
			configured: 3,
			wantAction: models.ActionBuy,
			wantConf:   0.8,
		},
		{
			name:       "sub-threshold signals are discarded before summing",
			signals:    []models.Signal{sig(models.ActionBuy, 0.49), sig(models.ActionBuy, 0.49), sig(models.ActionBuy, 0.49)},
			configured: 3,
			wantAction: models.ActionNone,
			wantConf:   0,
		},
		{
			name:       "tie yields no trade",
			signals:    []models.Signal{sig(models.ActionBuy, 0.9), sig(models.ActionSell, 0.9)},
			configured: 1,
			wantAction: models.ActionNone,
			wantConf:   0.9,
		},
		{
			name:       "dominant sell wins",
			signals:    []models.Signal{sig(models.ActionSell, 0.8), sig(models.ActionSell, 0.6), sig(models.ActionBuy, 0.5)},
			configured: 2,
			wantAction: models.ActionSell,
			wantConf:   0.7,
		},
		{
			name:       "no configured intervals",
			signals:    []models.Signal{sig(models.ActionBuy, 0.9)},
			configured: 0,
			wantAction: models.ActionNone,
			wantConf:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("BTCUSDT", tt.signals, tt.configured)
			if got.Action != tt.wantAction {
				t.Errorf("action = %s, want %s", got.Action, tt.wantAction)
			}
			if diff := got.Confidence - tt.wantConf; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}
