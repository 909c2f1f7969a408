package model

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// DecodeData 解析 JSON 数据袋文本；空文本视为空袋.
func DecodeData(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := sonic.UnmarshalString(raw, &m); err != nil {
		return nil, fmt.Errorf("decode data bag: %w", err)
	}

	if m == nil {
		m = map[string]any{}
	}

	return m, nil
}

// EncodeData 序列化数据袋为 JSON 文本.
func EncodeData(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}

	s, err := sonic.MarshalString(m)
	if err != nil {
		return "", fmt.Errorf("encode data bag: %w", err)
	}

	return s, nil
}
