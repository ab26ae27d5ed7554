package dto

type ConnectAccountRequest struct {
	Platform          string `json:"platform"            binding:"required"`
	AccessToken       string `json:"access_token"        binding:"required"`
	RefreshToken      string `json:"refresh_token"`
	ExpiresIn         int64  `json:"expires_in"`
	Scope             string `json:"scope"`
	PlatformAccountID string `json:"platform_account_id"`
}

type Res struct {
	ResponseCode    string      `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	Data            interface{} `json:"data,omitempty"`
}
