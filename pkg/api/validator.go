package api

import "errors"

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p PlayData) Validate() error {
	if p.GameName == "" {
		return errors.New("gameName is required")
	}
	return nil
}

func (p FinishedData) Validate() error {
	if p.OrderIndex < 0 {
		return errors.New("orderIndex cannot be negative")
	}
	return nil
}

func (p RunData) Validate() error {
	if p.FunctionName == "" {
		return errors.New("functionName is required")
	}
	return nil
}
