// Package payout converts the run's accumulators into the payment
// instruction list consumed by the downstream mass-payment tool.
package payout

import (
	"encoding/json"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/tn-tools/leasepay/internal/models"
)

// Unit scales. Fee accumulators are already in base minimal units;
// token accumulators are in display units and scale by 10^2.
const (
	BaseUnitScale  = 100_000_000
	TokenUnitScale = 100
)

// RoundMinimalUnits rounds an accumulated base-asset amount that is
// already denominated in minimal units.
func RoundMinimalUnits(v float64) int64 {
	return int64(math.Round(v))
}

// ToMinimalTokenUnits converts a token amount from display units to
// minimal units.
func ToMinimalTokenUnits(v float64) int64 {
	return int64(math.Round(v * TokenUnitScale))
}

// ToDisplayUnits converts a base-asset minimal-unit amount to display
// units.
func ToDisplayUnits(v float64) float64 {
	return v / BaseUnitScale
}

// Aggregator finalizes accumulators into payment instructions.
type Aggregator struct {
	Sender     string
	Fee        int64
	Attachment string
}

// Finalize emits, for every address appearing in either accumulator in
// ascending address order, a fee instruction when the fee accumulator is
// positive, then a token instruction when the token accumulator is
// positive. Zero or negative entries produce no instruction. Sorting
// makes replay output byte-identical.
func (a Aggregator) Finalize(feeShare, tokenShare map[string]float64) []models.PaymentInstruction {
	addresses := make([]string, 0, len(feeShare)+len(tokenShare))
	seen := make(map[string]bool, len(feeShare)+len(tokenShare))
	for address := range feeShare {
		if !seen[address] {
			seen[address] = true
			addresses = append(addresses, address)
		}
	}
	for address := range tokenShare {
		if !seen[address] {
			seen[address] = true
			addresses = append(addresses, address)
		}
	}
	sort.Strings(addresses)

	instructions := make([]models.PaymentInstruction, 0, 2*len(addresses))
	for _, address := range addresses {
		if fee := feeShare[address]; fee > 0 {
			instructions = append(instructions, models.PaymentInstruction{
				Amount:     RoundMinimalUnits(fee),
				Fee:        a.Fee,
				Sender:     a.Sender,
				Attachment: a.Attachment,
				Recipient:  address,
			})
		}
		if token := tokenShare[address]; token > 0 {
			instructions = append(instructions, models.PaymentInstruction{
				Amount:     ToMinimalTokenUnits(token),
				Fee:        a.Fee,
				Sender:     a.Sender,
				Attachment: a.Attachment,
				Recipient:  address,
			})
		}
	}
	return instructions
}

// WriteFile writes the instruction list as a single JSON array,
// overwriting any prior file of the same name.
func WriteFile(path string, instructions []models.PaymentInstruction) error {
	data, err := json.Marshal(instructions)
	if err != nil {
		return errors.WithMessage(err, "marshaling payment instructions")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WithMessagef(err, "writing payments file %s", path)
	}
	return nil
}
