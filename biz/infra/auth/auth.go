package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/config"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/cst"
	"github.com/xh-polaris/chatstream-core-api/biz/infra/mapper/user"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
	"github.com/xh-polaris/chatstream-core-api/types/errno"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var _ Resolver = (*JWTResolver)(nil)

// Resolver 将请求携带的令牌解析为用户
type Resolver interface {
	Resolve(ctx context.Context, token string) (bson.ObjectID, error)
}

// JWTResolver 优先使用ES256公钥验签, 未配置公钥时使用HS256密钥
type JWTResolver struct {
	Auth  config.Auth
	Users user.MongoMapper
}

func NewJWTResolver(c *config.Config, users user.MongoMapper) *JWTResolver {
	return &JWTResolver{Auth: c.Auth, Users: users}
}

// Resolve 任何失败都返回UnAuth错误, 具体原因只记录日志
func (r *JWTResolver) Resolve(ctx context.Context, token string) (bson.ObjectID, error) {
	uid, err := r.resolve(ctx, token)
	if err != nil {
		logs.CtxInfof(ctx, "[auth] resolve token fail, err=%s", errorx.ErrorWithoutStack(err))
		return bson.NilObjectID, errorx.WrapByCode(err, errno.UnAuthErrCode)
	}
	return uid, nil
}

func (r *JWTResolver) resolve(ctx context.Context, token string) (bson.ObjectID, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), cst.BearerPrefix))
	if token == "" {
		return bson.NilObjectID, errors.New("missing token")
	}

	parsed, err := jwt.Parse(token, r.keyFunc)
	if err != nil {
		return bson.NilObjectID, err
	}
	if !parsed.Valid {
		return bson.NilObjectID, errors.New("token is not valid")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return bson.NilObjectID, errors.New("unexpected claims")
	}
	hex, ok := claims[cst.ClaimUserId].(string)
	if !ok || hex == "" {
		return bson.NilObjectID, fmt.Errorf("claim %s missing", cst.ClaimUserId)
	}
	uid, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.NilObjectID, err
	}

	// 用户不存在或被封禁
	if _, err = r.Users.FindById(ctx, uid); err != nil {
		return bson.NilObjectID, err
	}
	return uid, nil
}

func (r *JWTResolver) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodECDSA:
		if r.Auth.PublicKey == "" {
			break
		}
		return jwt.ParseECPublicKeyFromPEM([]byte(r.Auth.PublicKey))
	case *jwt.SigningMethodHMAC:
		if r.Auth.SecretKey == "" {
			break
		}
		return []byte(r.Auth.SecretKey), nil
	}
	return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
}

// Sign 使用HS256签发令牌, 供命令行工具与测试使用
func Sign(secret string, uid bson.ObjectID, expire int64) (string, error) {
	claims := jwt.MapClaims{cst.ClaimUserId: uid.Hex()}
	if expire > 0 {
		claims["exp"] = expire
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Issue 按配置签发令牌, AccessExpire为有效秒数, 不大于0时不过期
func Issue(c config.Auth, uid bson.ObjectID, now time.Time) (string, error) {
	if c.SecretKey == "" {
		return "", errors.New("auth secret key not configured")
	}
	var expire int64
	if c.AccessExpire > 0 {
		expire = now.Unix() + c.AccessExpire
	}
	return Sign(c.SecretKey, uid, expire)
}
