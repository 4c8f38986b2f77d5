package util

import (
	"errors"
	"strconv"
	"strings"
)

// OptionalPositiveInt 解析可选的正整数查询参数，空字符串返回 nil
func OptionalPositiveInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	if v <= 0 {
		return nil, errors.New("must be a positive integer")
	}
	return &v, nil
}
