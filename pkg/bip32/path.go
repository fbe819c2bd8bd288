package bip32

import (
	"fmt"
	"strconv"
	"strings"

	"hdwallet-core/pkg/errno"
)

// DerivationPath 是任意深度的派生路径，例如 m/0'/1/2h。
type DerivationPath []ChildNumber

// ParseDerivationPath 解析路径字符串
// 支持格式: m/44'/0'/0'/0/0 或 m/44h/0h/0h/0/0，"m" 表示主密钥本身。
func ParseDerivationPath(path string) (DerivationPath, error) {
	path = strings.TrimSpace(path)
	if path == "m" || path == "M" {
		return DerivationPath{}, nil
	}
	if !strings.HasPrefix(path, "m/") && !strings.HasPrefix(path, "M/") {
		return nil, fmt.Errorf("%w: %q must start with \"m/\"", errno.ErrInvalidPath, path)
	}

	segments := strings.Split(path[2:], "/")
	if len(segments) > MaxDepth {
		return nil, fmt.Errorf("%w: deeper than %d levels", errno.ErrMaxDepthExceeded, MaxDepth)
	}

	out := make(DerivationPath, 0, len(segments))
	for _, segment := range segments {
		cn, err := parseSegment(segment)
		if err != nil {
			return nil, err
		}
		out = append(out, cn)
	}
	return out, nil
}

// TrimHardened 去掉末尾的硬化标记 (' h H)，并报告是否存在。
func TrimHardened(segment string) (string, bool) {
	if n := len(segment); n > 0 {
		switch segment[n-1] {
		case '\'', 'h', 'H':
			return segment[:n-1], true
		}
	}
	return segment, false
}

func parseSegment(segment string) (ChildNumber, error) {
	raw := segment
	segment, hardened := TrimHardened(segment)
	if segment == "" || segment[0] == '+' || segment[0] == '-' {
		return ChildNumber{}, fmt.Errorf("%w: invalid segment %q", errno.ErrInvalidPath, raw)
	}

	val, err := strconv.ParseUint(segment, 10, 32)
	if err != nil {
		return ChildNumber{}, fmt.Errorf("%w: invalid segment %q", errno.ErrInvalidPath, raw)
	}
	if hardened {
		cn, err := Hardened(uint32(val))
		if err != nil {
			return ChildNumber{}, fmt.Errorf("%w: segment %q: %w", errno.ErrInvalidPath, raw, err)
		}
		return cn, nil
	}
	cn, err := Normal(uint32(val))
	if err != nil {
		return ChildNumber{}, fmt.Errorf("%w: segment %q: %w", errno.ErrInvalidPath, raw, err)
	}
	return cn, nil
}

// String 格式化为 m/44'/60'/0'/0/0，硬化标记统一为 '。
func (p DerivationPath) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, cn := range p {
		sb.WriteByte('/')
		sb.WriteString(cn.String())
	}
	return sb.String()
}

// Child returns a copy of p extended by cn.
func (p DerivationPath) Child(cn ChildNumber) DerivationPath {
	out := make(DerivationPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, cn)
}
