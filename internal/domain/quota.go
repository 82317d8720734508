// Package domain contains core business types and interfaces.
//
// This file defines the quota kinds enforced per account.
package domain

// QuotaType identifies the type of quota being checked.
type QuotaType string

const (
	QuotaTypePrayerList QuotaType = "prayer list"
	QuotaTypeShareImage QuotaType = "share image"
)
