package openai

// System and user prompt templates for order extraction. The contract
// is strict: a bare JSON array, one entry per (company, product) pair,
// products constrained to the known vocabulary.

const extractionSystemPrompt = "You extract structured order records from informal chat messages. " +
	"Always respond with only a JSON array, no prose and no markdown."

const extractionPromptTemplate = `Extract order entries from the chat message below.

Rules:
- Each entry is an object {"company": string, "product": string, "count": integer}.
- When one company orders several products, emit one entry per product.
- "product" must be one of: %s.
- "count" must be a positive integer.
- Respond with ONLY a JSON array. If the message contains no orders, respond with [].

Message:
%s`
