// Package finance computes fixed-rate amortization plans for vehicle purchases.
package finance

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultRate is the annual interest rate applied when the caller has no override.
	DefaultRate = 0.10
	MinYears    = 3
	MaxYears    = 6
)

// ErrValidation is wrapped by every input rejection so callers can map it to a client error.
var ErrValidation = errors.New("finance: invalid financing input")

var (
	ErrInvalidPrice       = fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	ErrInvalidDownPayment = fmt.Errorf("%w: down payment must be between zero and the price", ErrValidation)
	ErrInvalidTerm        = fmt.Errorf("%w: term must be between %d and %d years", ErrValidation, MinYears, MaxYears)
	ErrInvalidRate        = fmt.Errorf("%w: interest rate cannot be negative", ErrValidation)
)

// Input is the financing information gathered from a customer, either sent
// explicitly or drafted from free text.
type Input struct {
	CarPrice    float64 `json:"car_price"`
	DownPayment float64 `json:"down_payment"`
	Years       int     `json:"years"`
}

// Plan is the full result of a financing calculation.
type Plan struct {
	Months         int     `json:"months"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalPaid      float64 `json:"total_paid"`
	InterestRate   float64 `json:"interest_rate"`
}

// Calculate builds an amortization plan. Invalid inputs are rejected without a partial result.
func Calculate(price, downPayment float64, years int, rate float64) (Plan, error) {
	if err := validate(price, downPayment, years, rate); err != nil {
		return Plan{}, err
	}

	principal := price - downPayment
	months := years * 12
	monthlyRate := rate / 12

	var monthly float64
	if monthlyRate == 0 {
		monthly = principal / float64(months)
	} else {
		growth := math.Pow(1+monthlyRate, float64(months))
		monthly = principal * monthlyRate * growth / (growth - 1)
	}
	total := monthly*float64(months) + downPayment

	return Plan{
		Months:         months,
		MonthlyPayment: round2(monthly),
		TotalPaid:      round2(total),
		InterestRate:   rate,
	}, nil
}

// CalculateInput is Calculate over an Input.
func CalculateInput(in Input, rate float64) (Plan, error) {
	return Calculate(in.CarPrice, in.DownPayment, in.Years, rate)
}

func validate(price, downPayment float64, years int, rate float64) error {
	switch {
	case math.IsNaN(price) || price <= 0:
		return ErrInvalidPrice
	case math.IsNaN(downPayment) || downPayment < 0 || downPayment >= price:
		return ErrInvalidDownPayment
	case years < MinYears || years > MaxYears:
		return ErrInvalidTerm
	case math.IsNaN(rate) || rate < 0:
		return ErrInvalidRate
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
