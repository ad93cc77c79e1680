package triage

import "fmt"

// systemPrompt fixes the evaluator persona and the response contract.
const systemPromptEN = `You are an editorial triage assistant. You evaluate short personal
journal entries for their potential to become universally resonant
writing. Respond with a single JSON object and nothing else.`

const systemPromptJA = `あなたは編集トリアージのアシスタントです。短い個人的な記録が、
普遍的に響く文章になる可能性を評価します。応答は単一のJSONオブジェクト
のみで返してください。`

const userPromptEN = `Evaluate this entry against four criteria. For each criterion return
"pass" (boolean) and "reason" (about 30 characters).

Criteria:
- hasSpecifics: the entry names a concrete situation, not an abstraction
- canBeCorePhrase: the insight can be distilled into one memorable line
- isTransferable: the insight applies beyond the author's situation
- isNonHarmful: publishing the insight harms nobody

Also distill a core question (40 characters or fewer) that the entry is
really asking.

Respond with exactly this JSON shape:
{"checks":{"hasSpecifics":{"pass":true,"reason":""},"canBeCorePhrase":{"pass":true,"reason":""},"isTransferable":{"pass":true,"reason":""},"isNonHarmful":{"pass":true,"reason":""}},"coreQuestion":""}

Entry:
%s`

const userPromptJA = `次の記録を4つの基準で評価してください。各基準について "pass"
(boolean) と "reason" (30文字程度) を返してください。

基準:
- hasSpecifics: 抽象論ではなく具体的な状況が書かれている
- canBeCorePhrase: 洞察を記憶に残る一行に凝縮できる
- isTransferable: 洞察が筆者以外にも当てはまる
- isNonHarmful: 公開しても誰も傷つけない

さらに、この記録が本当に問うている核心の問い (40文字以内) を抽出して
ください。

次のJSON形式で返答してください:
{"checks":{"hasSpecifics":{"pass":true,"reason":""},"canBeCorePhrase":{"pass":true,"reason":""},"isTransferable":{"pass":true,"reason":""},"isNonHarmful":{"pass":true,"reason":""}},"coreQuestion":""}

記録:
%s`

func buildPrompts(content, language string) (system, user string) {
	if language == "ja" {
		return systemPromptJA, fmt.Sprintf(userPromptJA, content)
	}
	return systemPromptEN, fmt.Sprintf(userPromptEN, content)
}

// Fallback reason strings per language.
func fallbackReasons(language string) (failed, safe string) {
	if language == "ja" {
		return "解析に失敗しました", "安全と仮定します"
	}
	return "analysis failed", "assumed safe"
}
