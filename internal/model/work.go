package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a client pays for a work order.
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCreditCard    PaymentMethod = "credit_card"
	PaymentDebitCard     PaymentMethod = "debit_card"
	PaymentBankTransfer  PaymentMethod = "bank_transfer"
	PaymentCheck         PaymentMethod = "check"
	PaymentDigitalWallet PaymentMethod = "digital_wallet"
)

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{
	PaymentCash, PaymentCreditCard, PaymentDebitCard,
	PaymentBankTransfer, PaymentCheck, PaymentDigitalWallet,
}

func (p PaymentMethod) Valid() bool {
	for _, m := range PaymentMethods {
		if p == m {
			return true
		}
	}
	return false
}

// WorkStatus is the lifecycle state of a work order.
type WorkStatus string

const (
	WorkPending    WorkStatus = "pending"
	WorkInProgress WorkStatus = "in_progress"
	WorkCompleted  WorkStatus = "completed"
	WorkCancelled  WorkStatus = "cancelled"
)

// WorkStatuses lists every accepted status.
var WorkStatuses = []WorkStatus{WorkPending, WorkInProgress, WorkCompleted, WorkCancelled}

func (s WorkStatus) Valid() bool {
	for _, w := range WorkStatuses {
		if s == w {
			return true
		}
	}
	return false
}

// Work is a job ordered by a client and led by a professional.  Client,
// ProjectLeader and Receipt are populated by the listing queries only.
type Work struct {
	ID              uint64          `json:"id"`
	Address         string          `json:"address"`
	Service         string          `json:"service"`
	Description     string          `json:"description"`
	Value           decimal.Decimal `json:"value"`
	Commission      decimal.Decimal `json:"commission"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Status          WorkStatus      `json:"status"`
	ClientID        uint64          `json:"client_id"`
	ProjectLeaderID uint64          `json:"project_leader_id"`
	CreatedAt       time.Time       `json:"created_at"`
	Client          *PublicAccount  `json:"client,omitempty"`
	ProjectLeader   *PublicAccount  `json:"project_leader,omitempty"`
	Receipt         *Receipt        `json:"receipt,omitempty"`
}

// Receipt is issued once per work.  BudgetNumber is unique across receipts.
type Receipt struct {
	ID            uint64          `json:"id"`
	WorkID        uint64          `json:"work_id"`
	BudgetNumber  uint32          `json:"budget_number"`
	Service       string          `json:"service"`
	Description   string          `json:"description"`
	Address       string          `json:"address"`
	Value         decimal.Decimal `json:"value"`
	Commission    decimal.Decimal `json:"commission"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Work          *ReceiptWork    `json:"work,omitempty"`
}

// ReceiptWork is the slice of the owning work shown next to a receipt in a
// professional's receipt listing.
type ReceiptWork struct {
	ID             uint64     `json:"id"`
	Status         WorkStatus `json:"status"`
	ClientName     string     `json:"client_name"`
	ClientLastname string     `json:"client_lastname"`
}

