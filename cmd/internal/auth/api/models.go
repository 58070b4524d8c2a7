package authapi

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// tokenResponse is the wire form of a session token.
type tokenResponse struct {
	UserID     int64  `json:"userId"`
	Token      string `json:"token"`
	ExpireTime string `json:"expireTime"`
	UpdateTime string `json:"updateTime"`
}

type infoResponse struct {
	Name      string `json:"name"`
	Company   string `json:"company"`
	Phone     string `json:"phone"`
	Avatar    string `json:"avatar"`
	Username  string `json:"username"`
	LoginTime string `json:"logintime"`
}
