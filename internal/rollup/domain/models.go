// Package domain defines the derived financial overview types. Buckets are
// computed on demand and never persisted.
package domain

import (
	"context"
	"fmt"
	"time"
)

// MonthlyBucket totals one calendar month of the overview window. Amounts
// are whole currency units rounded for display.
type MonthlyBucket struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`

	PaidUnits    int64 `json:"paid"`
	OpenUnits    int64 `json:"open"`
	OverdueUnits int64 `json:"overdue"`
}

// BucketKey identifies a calendar month.
type BucketKey struct {
	Year  int
	Month time.Month
}

func (k BucketKey) Label() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Overview is the trailing window of monthly buckets, oldest first.
type Overview struct {
	From    BucketKey       `json:"-"`
	To      BucketKey       `json:"-"`
	Buckets []MonthlyBucket `json:"buckets"`
}

type Service interface {
	// Overview aggregates the trailing six months of batch payments into
	// paid/open/overdue buckets.
	Overview(ctx context.Context) (Overview, error)
}
