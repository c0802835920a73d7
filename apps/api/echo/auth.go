package echoapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/user"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	contextUserKey   = "user"
	contextClaimsKey = "claims"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Type      string `json:"type"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// tokenIssuer signs and verifies HS256 tokens for one issuer/audience pair.
type tokenIssuer struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTokenIssuer(conf core.AuthConfig) *tokenIssuer {
	return &tokenIssuer{
		secret:     []byte(conf.JWTSecret),
		issuer:     conf.Issuer,
		audience:   conf.Audience,
		accessTTL:  conf.AccessTokenTTL,
		refreshTTL: conf.RefreshTokenTTL,
	}
}

func (ti *tokenIssuer) sign(usr user.User, typ string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    ti.issuer,
			Subject:   usr.ID,
			Audience:  jwt.ClaimStrings{ti.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type:      typ,
		Email:     usr.Email,
		Role:      usr.Role,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

// Issue returns a fresh access/refresh token pair for usr.
func (ti *tokenIssuer) Issue(usr user.User) (TokenPair, error) {
	access, err := ti.sign(usr, tokenTypeAccess, ti.accessTTL)
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "signing access token")
	}
	refresh, err := ti.sign(usr, tokenTypeRefresh, ti.refreshTTL)
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "signing refresh token")
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(ti.accessTTL / time.Second),
	}, nil
}

// Parse verifies the signature, issuer, audience, expiry and type of a token.
func (ti *tokenIssuer) Parse(tokenString, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithAudience(ti.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != typ {
		return nil, errors.Errorf("unexpected %q token", claims.Type)
	}
	return claims, nil
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		UserType string `json:"userType" validate:"required,usertype"`
	}

	LoginResponse struct {
		TokenPair
		User     user.Profile `json:"user"`
		UserType string       `json:"userType"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	lr.UserType = core.CleanString(lr.UserType, true /* lower */)
	return validate.Struct(lr)
}

type authApi struct {
	api
	tokens *tokenIssuer
}

func registerAuthAPI(g *echo.Group, a api, tokens *tokenIssuer, authed echo.MiddlewareFunc) {
	h := authApi{api: a, tokens: tokens}

	ag := g.Group("/auth")
	ag.POST("/login", h.login)
	ag.POST("/refresh", h.refresh)
	ag.GET("/profile", h.profile, authed)
}

// authenticate checks the credentials of a user of the given login type.
func (h *authApi) authenticate(ctx context.Context, req LoginRequest) (user.User, error) {
	usr, err := h.deps.UserSvc.GetByEmailAndRole(ctx, req.Email, user.RoleForType(req.UserType))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(req.Password); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	return usr, nil
}

func (h *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(h.deps.Validate); err != nil {
		return err
	}

	usr, err := h.authenticate(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	pair, err := h.tokens.Issue(usr)
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	return respond(ctx, http.StatusOK, LoginResponse{
		TokenPair: pair,
		User:      usr.Profile(),
		UserType:  user.TypeForRole(usr.Role),
	})
}

func (h *authApi) refresh(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := h.deps.Validate.Struct(&data); err != nil {
		return err
	}

	claims, err := h.tokens.Parse(strings.TrimSpace(data.RefreshToken), tokenTypeRefresh)
	if err != nil {
		return errInvalidRefreshToken
	}
	usr, err := h.deps.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errInvalidRefreshToken
		}
		return errors.Wrap(err, "finding token user")
	}
	pair, err := h.tokens.Issue(usr)
	if err != nil {
		return errors.Wrap(err, "issuing tokens")
	}
	return respond(ctx, http.StatusOK, pair)
}

func (h *authApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, usr.Profile())
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}
