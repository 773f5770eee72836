package conn

import "strings"

const testPathPrefix = "test="

// extractUserIDFromTestPath 从 /ws/test={userID} 取用户 ID，只在测试环境打开
func (w *Worker) extractUserIDFromTestPath(path string) (string, bool) {
	if !w.allowTestPath {
		return "", false
	}
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' }) {
		if userID, ok := strings.CutPrefix(seg, testPathPrefix); ok && userID != "" {
			return userID, true
		}
	}
	return "", false
}
