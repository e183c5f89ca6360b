package minio

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
)

// CopyToVault 将聊天媒体对象复制到保险库桶，返回目标对象键。
// srcRef 可能是完整公共 URL，也可能是对象键，统一剥离出键后做服务端复制。
func CopyToVault(ctx context.Context, srcRef string, destName string) (string, error) {
	if Client == nil {
		return "", fmt.Errorf("minio client is not initialized")
	}

	srcKey := ObjectKeyFromRef(srcRef)
	if srcKey == "" {
		return "", fmt.Errorf("cannot resolve object key from ref")
	}

	dst := minio.CopyDestOptions{
		Bucket: VaultBucket,
		Object: destName,
	}
	src := minio.CopySrcOptions{
		Bucket: MediaBucket,
		Object: srcKey,
	}

	if _, err := Client.CopyObject(ctx, dst, src); err != nil {
		return "", errors.Wrap(err, "failed to copy object to vault")
	}
	return destName, nil
}

// ObjectKeyFromRef 从媒体引用中解析出对象键。
// 引用形如 "http(s)://host/bucket/chat/<uid>/<file>" 或直接是 "chat/<uid>/<file>"。
func ObjectKeyFromRef(ref string) string {
	if ref == "" {
		return ""
	}
	if !strings.Contains(ref, "://") {
		return strings.TrimPrefix(ref, "/")
	}

	parts := strings.SplitN(ref, "://", 2)
	segments := strings.SplitN(parts[1], "/", 3)
	if len(segments) < 3 {
		return ""
	}
	return segments[2]
}
