package svc

import "errors"

// ErrNoCandles 错误：K 线仓储为空
var ErrNoCandles = errors.New("candle store is empty, import candles first")

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")
