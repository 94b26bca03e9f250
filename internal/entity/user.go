package entity

import "database/sql"

type User struct {
	Base

	Name       string `gorm:"unique"`
	AvatarURL  string
	WalletAddr string

	// Signals the completion checker evaluates against.
	KycVerifiedAt    sql.NullTime
	FirstTradeAt     sql.NullTime
	FirstBetAt       sql.NullTime
	FirstTradeAmount float64
}
