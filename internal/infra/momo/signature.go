package momo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// key=value を&でつないだ署名対象文字列（キー順は固定）
func canonical(pairs ...[2]string) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(p[1])
	}
	return b.String()
}

func sign(secret, raw string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func createRaw(accessKey string, r createBody) string {
	return canonical(
		[2]string{"accessKey", accessKey},
		[2]string{"amount", strconv.FormatInt(r.Amount, 10)},
		[2]string{"extraData", r.ExtraData},
		[2]string{"ipnUrl", r.IPNURL},
		[2]string{"orderId", r.OrderID},
		[2]string{"orderInfo", r.OrderInfo},
		[2]string{"partnerCode", r.PartnerCode},
		[2]string{"redirectUrl", r.RedirectURL},
		[2]string{"requestId", r.RequestID},
		[2]string{"requestType", r.RequestType},
	)
}

func callbackRaw(accessKey string, p CallbackPayload) string {
	return canonical(
		[2]string{"accessKey", accessKey},
		[2]string{"amount", strconv.FormatInt(p.Amount, 10)},
		[2]string{"extraData", p.ExtraData},
		[2]string{"message", p.Message},
		[2]string{"orderId", p.OrderID},
		[2]string{"orderInfo", p.OrderInfo},
		[2]string{"orderType", p.OrderType},
		[2]string{"partnerCode", p.PartnerCode},
		[2]string{"payType", p.PayType},
		[2]string{"requestId", p.RequestID},
		[2]string{"responseTime", strconv.FormatInt(p.ResponseTime, 10)},
		[2]string{"resultCode", strconv.Itoa(p.ResultCode)},
		[2]string{"transId", strconv.FormatInt(p.TransID, 10)},
	)
}

func queryRaw(accessKey, partnerCode, orderID, requestID string) string {
	return canonical(
		[2]string{"accessKey", accessKey},
		[2]string{"orderId", orderID},
		[2]string{"partnerCode", partnerCode},
		[2]string{"requestId", requestID},
	)
}
