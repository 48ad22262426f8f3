// Package gemini implements the chat backend for Google's Gemini API
// (generateContent and streamGenerateContent). System messages are sent as
// the systemInstruction and assistant turns use the "model" role.
//
// [New] reads GEMINI_API_KEY and GEMINI_API_BASE_URL from the environment.
package gemini
