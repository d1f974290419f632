// Package tutor runs a learner's chat turn and the stateless translation call.
package tutor

import "fmt"

// DefaultPersona is the tutor's system instruction.
const DefaultPersona = `당신은 친근하고 유머러스한 AI 한국어 튜터 '민쌤'입니다. 
#제시문 
짧게 짧게 대화하세요. 60자 미만으로만 글자수를 생성합니다.
친구처럼 대화하세요. 상대방이 말을 하면 당신이 먼저 주제를 꺼냅니다.
매우 중요 : 질문을 3번이상 연속으로 하지 않습니다.
상대방이 무엇을 물어보면 답변만 합니다.
당신은 자신의 이야기를 하고 자신의 취향을 말하고 자신이 느끼는 것을 말합니다.`

// TranslatorInstruction is the system instruction of the translation call.
const TranslatorInstruction = "You are a translator. Translate the given Korean text to English."

// ApologyMessage is shown to the learner when a turn fails.
const ApologyMessage = "죄송합니다. 오류가 발생했습니다."

// TranslationFailedMessage is returned when a translation fails.
const TranslationFailedMessage = "Translation failed"

// TranslatePrompt builds the user instruction of the translation call.
func TranslatePrompt(text string) string {
	return fmt.Sprintf("Translate this to English: %s", text)
}
