package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "valid", value: "me"},
		{name: "empty", value: "", wantErr: true},
		{name: "whitespace", value: " \t\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.value, "param")
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyString) {
				t.Errorf("validateString() error = %v, want ErrEmptyString", err)
			}
		})
	}
}

func TestValidateExpense(t *testing.T) {
	if err := validateExpense(model.ValidatedExpense{}); !errors.Is(err, ErrInvalidExpense) {
		t.Errorf("validateExpense(zero) error = %v", err)
	}

	expense := mustExpense(t, "0", "other", "", time.Now())
	if err := validateExpense(expense); err != nil {
		t.Errorf("validateExpense(valid) error = %v", err)
	}
}
