package generation

import (
	"fmt"
	"sort"
	"strings"

	"progenai/internal/domain"
)

const outputOnly = " Output ONLY the optimized prompt, nothing else."

var instructions = map[domain.Modality]map[domain.Style]string{
	domain.ModalityImage: {
		domain.StyleSimple:    "Transform the user's basic idea into a clear, concise image generation prompt. Focus on the main subject and basic style. Keep it under 50 words.",
		domain.StyleDetailed:  "You are a professional AI image prompt engineer. Create a highly detailed, professional image generation prompt that includes: subject description, artistic style, lighting conditions, camera angle, composition, color palette, mood, and specific visual details. Make it optimized for AI image generators like Midjourney, DALL-E, or Stable Diffusion.",
		domain.StyleTechnical: "Create a technical, precise image generation prompt with specific parameters. Include: exact dimensions/aspect ratio, rendering style, technical specifications, quality settings, and detailed artistic parameters. Use technical terminology and specify exact requirements for professional results.",
		domain.StyleCreative:  "Create a wildly creative and imaginative image generation prompt that pushes artistic boundaries. Include surreal elements, unexpected combinations, innovative concepts, and unique visual metaphors. Encourage experimental and boundary-pushing artistic approaches.",
	},
	domain.ModalityText: {
		domain.StyleSimple:    "Transform the user's idea into a clear, straightforward prompt for text generation. Focus on the core request without unnecessary complexity. Keep it concise and direct.",
		domain.StyleDetailed:  "You are an expert prompt engineer for large language models. Create a comprehensive, well-structured prompt that includes: clear objective, specific context, detailed requirements, desired format, constraints, examples if needed, and success criteria. Ensure the prompt will produce high-quality, targeted results.",
		domain.StyleTechnical: "Create a technical, structured prompt for advanced AI text generation with precise specifications. Include: exact output format, technical requirements, data structures, validation criteria, performance constraints, and detailed implementation guidelines. Use technical terminology appropriate for the domain.",
		domain.StyleCreative:  "Create an innovative, creative prompt that encourages imaginative thinking and artistic expression. Include: creative constraints, inspirational elements, unique perspectives, metaphorical thinking, and encouragement for original approaches. Push the boundaries of conventional thinking.",
	},
	domain.ModalityCode: {
		domain.StyleSimple:    "Transform the user's coding idea into a clear, straightforward prompt for code generation. Specify the programming language, basic functionality, and core requirements. Keep it concise and focused.",
		domain.StyleDetailed:  "You are a senior software architect. Create a comprehensive coding prompt that includes: technology stack, detailed requirements, best practices, error handling, testing strategy, performance considerations, security requirements, and code quality standards. Ensure the prompt will produce production-ready, maintainable code.",
		domain.StyleTechnical: "Create a highly technical coding prompt with specific implementation details. Include: exact algorithms, data structures, time/space complexity requirements, technical specifications, performance benchmarks, security considerations, and detailed architectural patterns. Use precise technical terminology.",
		domain.StyleCreative:  "Create an innovative coding prompt that explores creative programming solutions. Include: unique algorithmic approaches, artistic coding techniques, unconventional data structures, creative problem-solving methods, and experimental implementation strategies. Encourage thinking outside traditional programming paradigms.",
	},
}

// SystemInstruction returns the optimization instruction for a modality and
// style, ending with the directive to answer in lang.
func SystemInstruction(modality domain.Modality, style domain.Style, lang domain.Language) string {
	base := instructions[modality][style]
	name := lang.Name()
	return base + outputOnly + fmt.Sprintf(
		"\n\nImportant: Output the optimized prompt in %s. Respond ONLY with the optimized prompt in %s, and do not include explanations.",
		name, name)
}

// OptimizePrompt is the text sent for the optimization call.
func OptimizePrompt(instruction, processedInput string) string {
	return fmt.Sprintf("%s\n\nUser Input: \"%s\"", instruction, processedInput)
}

// QuestionPrompt asks for three numbered refinement questions.
func QuestionPrompt(originalInput, optimized string, lang domain.Language, modality domain.Modality) string {
	return fmt.Sprintf(
		"Based on the user's original input: \"%s\" and the optimized prompt: \"%s\", in %s, generate 3 specific questions that would help refine and improve this %s prompt even further. Focus on details that are missing or could be enhanced. Output only the questions, one per line, numbered 1-3.",
		originalInput, optimized, lang.Name(), modality)
}

// RefinementPrompt folds the answered questions into one instruction.
// Questions listed in order come first, in that order; the rest follow
// sorted.
func RefinementPrompt(originalInput string, answers domain.AnswerSet, order []string, modality domain.Modality) string {
	pairs := make([]string, 0, len(answers))
	seen := make(map[string]bool, len(answers))
	for _, q := range order {
		if a, ok := answers[q]; ok && !seen[q] {
			pairs = append(pairs, "Q: "+q+"\nA: "+a)
			seen[q] = true
		}
	}
	rest := make([]string, 0, len(answers))
	for q := range answers {
		if !seen[q] {
			rest = append(rest, q)
		}
	}
	sort.Strings(rest)
	for _, q := range rest {
		pairs = append(pairs, "Q: "+q+"\nA: "+answers[q])
	}
	return fmt.Sprintf(
		"Original user input: \"%s\"\n\nAdditional details from user:\n%s\n\nPlease create an even better, more refined %s prompt incorporating all this information. Make it highly detailed and optimized. Output ONLY the final prompt, nothing else.",
		originalInput, strings.Join(pairs, "\n\n"), modality)
}

// CodePrompt wraps an optimized or refined prompt in the code-synthesis
// instruction.
func CodePrompt(prompt string, refined bool) string {
	kind := "prompt"
	if refined {
		kind = "refined prompt"
	}
	return fmt.Sprintf(
		"Generate high-quality, production-ready code based on this %s: \"%s\". Include proper structure, comments, error handling, and follow best practices. Output only the code, no explanations.",
		kind, prompt)
}
