package domain

import "strings"

// Course 是课程聚合根。
// 价格以主货币单位存储，下单时由 order 服务经 HTTP 端口读取。
type Course struct {
	ID          int64
	Title       string
	Description string
	Price       float64
	Published   bool
}

// Validate 校验课程的基本不变量。
func (c *Course) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrInvalidCourse
	}
	if c.Price < 0 {
		return ErrInvalidCourse
	}
	return nil
}
