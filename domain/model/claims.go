package model

import "github.com/golang-jwt/jwt"

// BrandClaims are the JWT claims issued to dashboard users.
type BrandClaims struct {
	BrandID  string `json:"brand_id"`
	UserName string `json:"user_name"`
	jwt.StandardClaims
}
