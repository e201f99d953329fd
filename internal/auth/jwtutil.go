package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var b64 = base64.RawURLEncoding

// hs256Header is the encoded {"alg":"HS256","typ":"JWT"} header.
var hs256Header = b64.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

var (
	errMalformedToken = errors.New("malformed token")
	errSignature      = errors.New("signature mismatch")
)

// tokenClaims is the payload of access and refresh tokens.
type tokenClaims struct {
	Sub   string   `json:"sub"`
	Roles []string `json:"roles,omitempty"`
	Ver   int      `json:"ver"`
	Typ   string   `json:"typ"`
	Iat   int64    `json:"iat"`
	Exp   int64    `json:"exp"`
}

func signToken(claims tokenClaims, secret []byte) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	unsigned := hs256Header + "." + b64.EncodeToString(payload)
	return unsigned + "." + b64.EncodeToString(mac(unsigned, secret)), nil
}

// verifyToken checks the HS256 signature before decoding the payload.
func verifyToken(token string, secret []byte) (tokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return tokenClaims{}, errMalformedToken
	}
	header, err := b64.DecodeString(parts[0])
	if err != nil {
		return tokenClaims{}, errMalformedToken
	}
	var hdr struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(header, &hdr); err != nil || hdr.Alg != "HS256" {
		return tokenClaims{}, errors.New("unsupported token algorithm")
	}
	sig, err := b64.DecodeString(parts[2])
	if err != nil {
		return tokenClaims{}, errMalformedToken
	}
	if !hmac.Equal(sig, mac(parts[0]+"."+parts[1], secret)) {
		return tokenClaims{}, errSignature
	}
	payload, err := b64.DecodeString(parts[1])
	if err != nil {
		return tokenClaims{}, errMalformedToken
	}
	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return tokenClaims{}, errMalformedToken
	}
	return claims, nil
}

func mac(unsigned string, secret []byte) []byte {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(unsigned))
	return m.Sum(nil)
}
