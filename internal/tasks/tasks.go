// Package tasks defines the asynq task types shared by the API and worker.
package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TypeRuleSweep expires rules whose date window has lapsed.
	TypeRuleSweep = "rules:sweep"
	// TypePricingWarm pre-populates the merchant pricing caches.
	TypePricingWarm = "pricing:warm"
)

// PricingWarmPayload optionally narrows the warm to specific merchants.
// Empty means every merchant with configured pricing.
type PricingWarmPayload struct {
	MerchantIDs []int64 `json:"merchantIds,omitempty"`
}

// NewRuleSweep builds the periodic status sweep task.
func NewRuleSweep() *asynq.Task {
	return asynq.NewTask(TypeRuleSweep, nil)
}

// NewPricingWarm builds a cache warm task.
func NewPricingWarm(merchantIDs []int64) (*asynq.Task, error) {
	payload, err := json.Marshal(PricingWarmPayload{MerchantIDs: merchantIDs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePricingWarm, payload), nil
}
