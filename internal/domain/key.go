package domain

import "fmt"

func redisKeyCode(code string) string {
	return fmt.Sprintf("refcode:%s", code)
}
