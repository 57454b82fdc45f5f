package llm

import (
	"fmt"
	"strings"

	"archetype-go/pkg/archetype"
)

var langInstructions = map[string]string{
	archetype.LangRU: "Пиши весь текст СТРОГО на русском языке.",
	archetype.LangEN: "Write the entire response STRICTLY in English.",
	archetype.LangES: "Escribe todo el texto ESTRICTAMENTE en español.",
	archetype.LangPT: "Escreva todo o texto ESTRITAMENTE em português.",
}

type shortLabels struct {
	Values, Conclusion, Point1, Point2 string
}

var shortPromptLabels = map[string]shortLabels{
	archetype.LangRU: {"Ценности", "Заключение", "Пункт 1", "Пункт 2"},
	archetype.LangEN: {"Values", "Conclusion", "Point 1", "Point 2"},
	archetype.LangES: {"Valores", "Conclusión", "Punto 1", "Punto 2"},
	archetype.LangPT: {"Valores", "Conclusão", "Ponto 1", "Ponto 2"},
}

func languageRule(lang string) string {
	if rule, ok := langInstructions[lang]; ok {
		return rule
	}
	return langInstructions[archetype.LangRU]
}

// answersText 把回答拼成 "Q<id>: <answer>"，跳过空回答。
func answersText(answers []Answer) string {
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		if strings.TrimSpace(a.Text) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("Q%d: %s", a.QuestionID, a.Text))
	}
	return strings.Join(lines, "\n")
}

func classifySystemPrompt(lang string) string {
	return languageRule(lang) + `

You are the analytical model of the "24 animals × 4 elements" system.
Return STRICTLY JSON. Do not add any fields except the listed ones.
Use ONLY the approved archetypes, never metaphorical or alternative names.

animal — one of:
` + strings.Join(archetype.Animals, ", ") + `

element — strictly one of: ` + strings.Join(archetype.Elements, " | ") + `
genderForm — male | female | unspecified

Format (STRICT):
{"animal": "Wolf", "element": "Огонь", "genderForm": "male"}`
}

func classifyUserPrompt(req SummaryRequest) string {
	return fmt.Sprintf("Name: %s\nLanguage: %s\nGender: %s\n\nUser answers:\n%s",
		req.Name, req.Lang, archetype.NormalizeGender(req.Gender), answersText(req.Answers))
}

func shortSystemPrompt(lang string) string {
	return languageRule(lang) + `

You generate a SHORT result in the "24 animals × 4 elements" system.
Strictly follow the structure from the user prompt. Do not add extra blocks.`
}

func shortUserPrompt(req SummaryRequest, animal, element, genderForm string) string {
	labels, ok := shortPromptLabels[req.Lang]
	if !ok {
		labels = shortPromptLabels[archetype.LangRU]
	}
	animalDisplay := archetype.AnimalDisplayName(animal, req.Lang, genderForm)
	elementDisplay := archetype.ElementArchetypeLine(element, req.Lang)

	var b strings.Builder
	fmt.Fprintf(&b, "Use ONLY this animal: %s\n", animalDisplay)
	fmt.Fprintf(&b, "Write the WHOLE text strictly in language: %s. Do not mix languages.\n\n", req.Lang)
	b.WriteString("Gender affects ONLY the grammatical form of the archetype name, never the analysis.\n")
	fmt.Fprintf(&b, "Gender: %s\n\n", archetype.NormalizeGender(req.Gender))
	b.WriteString("STRICT STRUCTURE (DO NOT CHANGE):\n\n")
	fmt.Fprintf(&b, "%s — %s %s {ICON}\n", req.Name, animalDisplay, elementDisplay)
	b.WriteString("{Short image line, 3–7 words}\n\n{Short general description, 1–2 paragraphs}\n\n")
	fmt.Fprintf(&b, "🧭 %s — «{3–4 key words}»\n• …\n• …\n• …\n• …\n\n", labels.Values)
	fmt.Fprintf(&b, "{%s — the brightest}\n{ICON} {Title} — «{Metaphorical title}»\n{Short description}\n\n", labels.Point1)
	fmt.Fprintf(&b, "{%s — second brightest}\n{ICON} {Title} — «{Metaphorical title}»\n{Short description}\n\n", labels.Point2)
	fmt.Fprintf(&b, "🧩 %s\n{Integral conclusion}\n\n", labels.Conclusion)
	b.WriteString("Tone: adult, calm, confident. Forbidden: \"maybe\", \"it seems\", esotericism, explaining the analysis.\n\n")
	fmt.Fprintf(&b, "User name: %s\nLanguage: %s\n\nUser answers:\n%s", req.Name, req.Lang, answersText(req.Answers))
	return b.String()
}

func fullSystemPrompt() string {
	return `You build the FULL psychological profile in the "24 animals × 4 elements" system.
The archetype and the element are ALREADY SET. Do NOT change the archetype.
Do NOT add new animals. Do NOT use metaphors instead of names.
Write in the same language as the short profile you are given.`
}

// fullUserPrompt 只使用 ShortResult 的四个字段，不包含原始回答。
func fullUserPrompt(short ShortFields) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Archetype: %s\nElement: %s\nGender form: %s\n\n", short.Animal, short.Element, short.GenderForm)
	b.WriteString("Expand the short profile below into a full profile with these numbered sections, ")
	b.WriteString("keeping its first line (name — archetype element) unchanged:\n")
	b.WriteString("1. General psychological profile\n2. Energetic profile\n3. Thinking style\n4. Social interaction\n")
	b.WriteString("5. Conflict and behavior under tension\n6. Values\n7. Professional style\n8. Strengths\n")
	b.WriteString("9. Potential weaknesses\n10. Life path\nConclusion\n\n")
	b.WriteString("Short profile:\n")
	b.WriteString(short.Text)
	return b.String()
}
