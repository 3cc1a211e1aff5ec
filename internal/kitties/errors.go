package kitties

import (
	"errors"
	"fmt"
)

// Code is the stable identifier of a ledger error kind.
type Code string

const (
	CodeAssetIDExists     Code = "AssetIdExists"
	CodeOverflow          Code = "Overflow"
	CodeExceedMaxOwned    Code = "ExceedMaxOwned"
	CodeNotOwner          Code = "NotOwner"
	CodeTransferToSelf    Code = "TransferToSelf"
	CodeNotForSale        Code = "NotForSale"
	CodePriceTooHigh      Code = "PriceTooHigh"
	CodeInsufficientFunds Code = "InsufficientFunds"
	CodeSameGender        Code = "SameGender"
	CodeKittyNotFound     Code = "KittyNotFound"
	CodeBuyerIsOwner      Code = "BuyerIsOwner"
	CodeInvalidGenesis    Code = "InvalidGenesis"
	// CodeBelowExistentialDeposit rejects a purchase whose price would open
	// the seller's account with less than the existential deposit.
	CodeBelowExistentialDeposit Code = "BelowExistentialDeposit"
)

// Error is a rejected ledger operation. Two errors match under errors.Is
// when their codes are equal, regardless of message.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrAssetIDExists     = &Error{Code: CodeAssetIDExists, Msg: "kitty id already exists"}
	ErrOverflow          = &Error{Code: CodeOverflow, Msg: "kitty count overflow"}
	ErrExceedMaxOwned    = &Error{Code: CodeExceedMaxOwned, Msg: "account owns the maximum number of kitties"}
	ErrNotOwner          = &Error{Code: CodeNotOwner, Msg: "caller does not own the kitty"}
	ErrTransferToSelf    = &Error{Code: CodeTransferToSelf, Msg: "cannot transfer a kitty to its owner"}
	ErrNotForSale        = &Error{Code: CodeNotForSale, Msg: "kitty is not for sale"}
	ErrPriceTooHigh      = &Error{Code: CodePriceTooHigh, Msg: "price exceeds the buyer's maximum"}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Msg: "buyer cannot afford the kitty"}
	ErrSameGender        = &Error{Code: CodeSameGender, Msg: "parents share a gender"}
	ErrKittyNotFound     = &Error{Code: CodeKittyNotFound, Msg: "kitty not found"}
	ErrBuyerIsOwner      = &Error{Code: CodeBuyerIsOwner, Msg: "buyer already owns the kitty"}
	ErrInvalidGenesis    = &Error{Code: CodeInvalidGenesis, Msg: "invalid genesis"}

	ErrBelowExistentialDeposit = &Error{Code: CodeBelowExistentialDeposit, Msg: "price would leave the seller below the existential deposit"}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the ledger code carried by err, or "" for other errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
