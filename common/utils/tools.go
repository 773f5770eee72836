package utils

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 从 bson.M 读取字段，类型不符时返回零值

func ToTime(value any) time.Time {
	switch v := value.(type) {
	case primitive.DateTime:
		return v.Time()
	case primitive.Timestamp:
		return time.Unix(int64(v.T), 0)
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	}
	return time.Time{}
}

func ToInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func ToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
	}
	return ""
}

func ToIntSlice(value any) []int {
	if v, ok := value.([]int); ok {
		return v
	}
	return mapSlice(value, ToInt)
}

// mapSlice primitive.A 和 []any 逐项转换
func mapSlice[T any](value any, conv func(any) T) []T {
	var items []any
	switch v := value.(type) {
	case primitive.A:
		items = v
	case []any:
		items = v
	}
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = conv(item)
	}
	return out
}
