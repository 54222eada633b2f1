package util

import (
	"fmt"
	"strconv"
)

// ParseID 解析正整数主键
func ParseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: id %q", ErrInvalidArgument, s)
	}
	return uint(id), nil
}

func UintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
