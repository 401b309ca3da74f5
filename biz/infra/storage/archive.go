package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Archiver 将对话附件归档到对象存储
type Archiver struct {
	cos COS
	now func() time.Time
}

func NewArchiver(c COS) *Archiver {
	return &Archiver{cos: c, now: time.Now}
}

// Enabled 未配置对象存储时不归档
func (a *Archiver) Enabled() bool {
	return a != nil && a.cos != nil
}

// Archive 解码附件并上传, 返回永久访问地址
func (a *Archiver) Archive(ctx context.Context, uid, cid bson.ObjectID, filename, mimeType, base64Payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(base64Payload)
	if err != nil {
		return "", fmt.Errorf("decode attachment: %w", err)
	}
	key := ArchiveKey(uid, cid, filename, a.now())
	opt := &cos.ObjectPutOptions{ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: mimeType}}
	if _, err = a.cos.Upload(ctx, key, bytes.NewReader(raw), opt); err != nil {
		return "", err
	}
	return a.cos.GetPermanentAccessURL(key), nil
}

// ArchiveKey attach/{user_id}/{conversation_id}/{毫秒时间戳}-{文件名}
func ArchiveKey(uid, cid bson.ObjectID, filename string, t time.Time) string {
	return fmt.Sprintf("attach/%s/%s/%d-%s", uid.Hex(), cid.Hex(), t.UnixMilli(), path.Base(filename))
}
