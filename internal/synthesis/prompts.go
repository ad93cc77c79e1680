package synthesis

import (
	"fmt"
	"strings"

	"weaklog/internal/entry"
)

const guideSystemEN = `You are a writing coach. Given a personal journal entry and its
editorial evaluation, produce questions that help the author deepen the
entry into a publishable piece. Respond with a single JSON object and
nothing else.`

const guideSystemJA = `あなたはライティングコーチです。個人的な記録とその編集評価をもとに、
記録を公開できる文章へ深めるための問いを作ります。応答は単一のJSON
オブジェクトのみで返してください。`

const guideUserEN = `Produce 3 to 5 open questions that push the author past the surface of
this entry, and suggest a writing tone: one of "reflective",
"analytical", or "exploratory".

Respond with exactly this JSON shape:
{"questions":["..."],"suggestedTone":"reflective"}

Core question the entry is asking: %s
Editorial signals: %s

Entry:
%s`

const guideUserJA = `この記録の表面を越えて筆者を掘り下げる3〜5個の開かれた問いを作り、
文章のトーンを "reflective"、"analytical"、"exploratory" のいずれかで
提案してください。

次のJSON形式で返答してください:
{"questions":["..."],"suggestedTone":"reflective"}

記録が問うている核心: %s
編集シグナル: %s

記録:
%s`

const draftSystemEN = `You are a ghostwriter who preserves the author's voice. Turn a journal
entry plus the author's answers to deepening questions into a coherent
first draft. Write prose only; no headings, no lists, no commentary.`

const draftSystemJA = `あなたは筆者の声を保つゴーストライターです。記録と、深掘りの問いへの
筆者の回答をもとに、一貫した初稿を書いてください。散文のみで、見出し
や箇条書き、注釈は入れないでください。`

const draftUserEN = `Write a first draft in a %s tone built around this core question: %s

Original entry:
%s

The author's answers:
%s`

const draftUserJA = `核心の問い「%s」を中心に、%s のトーンで初稿を書いてください。

元の記録:
%s

筆者の回答:
%s`

func buildGuidePrompts(content string, tr *entry.TriageResult, language string) (system, user string) {
	core := ""
	if tr != nil {
		core = tr.CoreQuestion
	}
	signals := triageSignals(tr, language)
	if language == "ja" {
		return guideSystemJA, fmt.Sprintf(guideUserJA, core, signals, content)
	}
	return guideSystemEN, fmt.Sprintf(guideUserEN, core, signals, content)
}

// triageSignals turns passed checks into context hints for the model;
// the raw per-check reasons stay out of the prompt.
func triageSignals(tr *entry.TriageResult, language string) string {
	ja := language == "ja"
	var hints []string
	if tr != nil {
		if tr.Checks.HasSpecifics.Pass {
			if ja {
				hints = append(hints, "具体的な状況を含む")
			} else {
				hints = append(hints, "contains concrete specifics")
			}
		}
		if tr.Checks.IsTransferable.Pass {
			if ja {
				hints = append(hints, "普遍的な関連性を持つ")
			} else {
				hints = append(hints, "has universal relevance")
			}
		}
	}
	if len(hints) == 0 {
		if ja {
			return "なし"
		}
		return "none"
	}
	return strings.Join(hints, ", ")
}

func buildDraftPrompts(content string, tr *entry.TriageResult, tone entry.Tone, answers []QA, language string) (system, user string) {
	core := ""
	if tr != nil {
		core = tr.CoreQuestion
	}
	var b strings.Builder
	for _, qa := range answers {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", qa.Question, qa.Answer)
	}
	if language == "ja" {
		return draftSystemJA, fmt.Sprintf(draftUserJA, core, tone, content, b.String())
	}
	return draftSystemEN, fmt.Sprintf(draftUserEN, tone, core, content, b.String())
}

// fallbackQuestions keeps synthesis moving when the model response is
// unusable. Generic but serviceable prompts per language.
func fallbackQuestions(language string) []string {
	if language == "ja" {
		return []string{
			"この出来事の何が一番心に残っていますか？",
			"同じ状況の他人には何と言いますか?",
			"この気づきの前と後で、何が変わりましたか？",
			"この話を読んだ人に何を持ち帰ってほしいですか？",
		}
	}
	return []string{
		"What about this moment stays with you the most?",
		"What would you tell someone else in the same situation?",
		"What changed between before this insight and after?",
		"What should a reader take away from this story?",
	}
}
