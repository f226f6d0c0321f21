package svc

import "errors"

// ErrEmptyUniverse 错误：没有配置任何标的
var ErrEmptyUniverse = errors.New("symbol universe is empty")
