package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamSessionKey returns the cache key for a candidate's exam session state
func (r *CacheKeyStruct) ExamSessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// BankSheetKey returns the cache key for a parsed question bank sheet
func (r *CacheKeyStruct) BankSheetKey(sheet string) string {
	return fmt.Sprintf("bank:%s:questions", sheet)
}

var CacheKey = NewCacheKeyStruct()
