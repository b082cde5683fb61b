package model

import (
	"net/url"
	"strconv"
	"strings"
)

type TakerKind string

const (
	TakerOfficial TakerKind = "official"
	TakerPractice TakerKind = "practice"
)

// Taker 作答人。正式考试以报名号为 key，练习以账号为 key
type Taker struct {
	Kind           TakerKind `json:"kind"`
	Key            string    `json:"takerKey"`
	UserID         uint      `json:"userId"`
	RegistrationNo string    `json:"registrationNo,omitempty"`
}

func OfficialTaker(userID uint, registrationNo string) Taker {
	return Taker{
		Kind:           TakerOfficial,
		Key:            "reg:" + registrationNo,
		UserID:         userID,
		RegistrationNo: registrationNo,
	}
}

func PracticeTaker(userID uint) Taker {
	return Taker{
		Kind:   TakerPractice,
		Key:    "user:" + strconv.FormatUint(uint64(userID), 10),
		UserID: userID,
	}
}

type SessionPurpose string

const (
	PurposeAnswers SessionPurpose = "answers"
	PurposeReview  SessionPurpose = "review"
	PurposeTime    SessionPurpose = "time"
	PurposeStarted SessionPurpose = "started"
)

var SessionPurposes = []SessionPurpose{PurposeAnswers, PurposeReview, PurposeTime, PurposeStarted}

// SessionKey 会话状态的复合键
type SessionKey struct {
	TestID   string
	TakerKey string
	Purpose  SessionPurpose
}

// String 各段单独转义，避免不同考试/考生拼接后冲突
func (k SessionKey) String() string {
	return "exam:session:" + url.QueryEscape(k.TestID) + ":" + url.QueryEscape(k.TakerKey) + ":" + string(k.Purpose)
}

// RegistrationNoFromKey 从正式考试的 takerKey 中取出报名号
func RegistrationNoFromKey(takerKey string) (string, bool) {
	no, ok := strings.CutPrefix(takerKey, "reg:")
	return no, ok && no != ""
}
