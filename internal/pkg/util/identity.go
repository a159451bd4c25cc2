package util

import "strings"

// NormalizeIdentity 身份键归一化：去除首尾空白并统一小写
func NormalizeIdentity(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// PairKey 生成无序会话对键：两个归一化身份按字典序拼接
// 互换收发双方得到同一个键，保证同一线程只有一个会话
func PairKey(a, b string) string {
	a = NormalizeIdentity(a)
	b = NormalizeIdentity(b)
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
