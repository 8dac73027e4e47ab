package click

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
)

const (
	ActionPrepare  = 0
	ActionComplete = 1
)

// Callback answer codes.
const (
	CodeOK                = 0
	CodeSignFailed        = -1
	CodeIncorrectAmount   = -2
	CodeActionNotFound    = -3
	CodeAlreadyPaid       = -4
	CodeOrderNotFound     = -5
	CodeTransactionError  = -6
	CodeUpdateFailed      = -7
	CodeBadRequest        = -8
	CodeTransactionFailed = -9
)

func SHA1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func MD5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// CallbackSign computes the md5 signature of a callback. merchantPrepareID
// takes part only in complete requests.
func CallbackSign(clickTransID, serviceID, secret, merchantTransID, merchantPrepareID, amount string, action int, signTime string) string {
	s := clickTransID + serviceID + secret + merchantTransID
	if action == ActionComplete {
		s += merchantPrepareID
	}
	s += amount + strconv.Itoa(action) + signTime
	return MD5Hex(s)
}

// VerifyCallbackSign compares in constant time.
func VerifyCallbackSign(expected, got string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
