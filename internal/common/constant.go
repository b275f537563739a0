package common

// Cookie names carrying tokens between the browser and the service.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationMetadataKey is the gRPC metadata key carrying the bearer
// access token on inbound calls.
const AuthorizationMetadataKey = "authorization"
