package authapi

import (
	"net"

	"coldeye/cmd/internal/auth/session"
	"coldeye/cmd/internal/httpx"
)

func toTokenResponse(t session.Token) tokenResponse {
	return tokenResponse{
		UserID:     t.UserID,
		Token:      t.Token,
		ExpireTime: httpx.FormatTime(t.ExpireTime),
		UpdateTime: httpx.FormatTime(t.UpdateTime),
	}
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
