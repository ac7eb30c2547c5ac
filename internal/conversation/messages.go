package conversation

import "strings"

const (
	// MaxTurns is the number of callee utterances after which the call closes.
	MaxTurns = 10

	// HangupKeyword ends the call on request when it appears anywhere in an utterance.
	HangupKeyword = "종료"
)

// Termination reasons recorded in the transcript.
const (
	ReasonTimeout           = "timeout"
	ReasonUserRequest       = "user_request"
	ReasonMaxTurns          = "max_turns"
	ReasonVoicemail         = "voicemail_detected"
	reasonUnexpectedPrefix  = "unexpected_termination:"
	serializationErrPayload = `{"error":"failed to process conversation data"}`
)

const (
	GreetingMessage  = "안녕하세요, AI 상담가입니다. 오늘 어떤 이야기를 나누고 싶으신가요?"
	FallbackMessage  = "죄송합니다. 시스템에 오류가 발생하여 답변을 드릴 수 없습니다. 잠시 후 다시 시도해주세요."
	FinalMessage     = "오늘 함께 이야기 나눌 수 있어서 의미 있는 시간이었습니다. 편안한 하루 보내시고, 다음에 또 뵙겠습니다."
	TimeoutMessage   = "응답이 없어 통화를 종료합니다."
	HangupMessage    = "요청에 따라 통화를 종료합니다."
	VoicemailMessage = "자동 응답이 감지되어 통화를 종료합니다."
	EndedMessage     = "통화가 이미 종료되었습니다."
)

// voicemailPhrases are matched against the first callee utterance only.
var voicemailPhrases = []string{
	"음성사서함",
	"소리샘",
	"삐 소리",
	"voicemail",
	"leave a message",
	"not available",
}

func isVoicemail(utterance string) bool {
	u := strings.ToLower(utterance)
	for _, p := range voicemailPhrases {
		if strings.Contains(u, p) {
			return true
		}
	}
	return false
}

func closingMessage(reason string) string {
	switch reason {
	case ReasonTimeout:
		return TimeoutMessage
	case ReasonUserRequest:
		return HangupMessage
	case ReasonMaxTurns:
		return FinalMessage
	case ReasonVoicemail:
		return VoicemailMessage
	default:
		return EndedMessage
	}
}

func systemTurn(reason string) string { return "통화 종료: " + reason }

// UnexpectedReason is the reason recorded when the provider ends a call.
func UnexpectedReason(providerStatus string) string {
	return reasonUnexpectedPrefix + providerStatus
}
