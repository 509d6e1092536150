package serverutils

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ownerLocal = "user_id"

// JwtMiddleware verifies the bearer token and stores the caller's id, the
// owner of every note and session they touch.
func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
	}
	ownerId, err := ParseOwnerToken(authHeader[7:])
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, err.Error()))
	}

	ctx.Locals(ownerLocal, ownerId)
	return ctx.Next()
}

// ParseOwnerToken verifies an HS256 token and returns its user_id claim.
func ParseOwnerToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	raw, _ := claims["user_id"].(string)
	ownerId, err := uuid.Parse(raw)
	if err != nil || ownerId == uuid.Nil {
		return uuid.Nil, errors.New("invalid claims")
	}
	return ownerId, nil
}

// OwnerID returns the authenticated caller set by JwtMiddleware.
func OwnerID(ctx *fiber.Ctx) (uuid.UUID, error) {
	ownerId, ok := ctx.Locals(ownerLocal).(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	return ownerId, nil
}

// ParamUUID parses a path parameter, reporting malformed ids as 400.
func ParamUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
