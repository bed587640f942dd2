package llm

import "fmt"

const systemPrompt = `You are a bot, a historian and an architecture researcher.
Given the address and a description (photo) of a building, provide:
1) the year of construction (if known),
2) the name of the architect (if known),
3) a short historical note: the history of the building, notable events, style (at most 3 sentences).
If you are not sure about a fact, answer "unknown". Do not try to continue the conversation.
Answer format: a JSON object with the fields "year", "architect", "history", "sources".`

const noAddress = "not specified"

// buildPrompt renders the chat messages for one building query.
func buildPrompt(address, photoContext string) []Message {
	if address == "" {
		address = noAddress
	}

	user := fmt.Sprintf("Address: %s\n", address)
	if photoContext != "" {
		user += fmt.Sprintf("Photo description: %s\n", photoContext)
	}
	user += `Please return a JSON object with the fields "year", "architect", "history", "sources".` + "\n"

	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: user},
	}
}
