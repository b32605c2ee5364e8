package agent

// Prompts sent to the completion collaborator. The classifier prompt asks
// for exactly one marker; the extraction prompts ask for a bare JSON
// object so the two-stage parser in internal/llm can handle it.

const classifyPromptTemplate = `You are the router of a task management assistant.
Classify the user message into exactly one of these intents and reply
with the matching marker only:

- generic_answer: a general question, greeting, or anything not about
  managing the task list
- task_create: the user wants to add a new task
- task_search: the user wants to find or list existing tasks
- task_update: the user wants to change an existing task
- task_delete: the user wants to remove an existing task

User message: %s`

const createExtractPromptTemplate = `Extract the parameters of the task the user wants to create.
Reply with a single JSON object and nothing else, using exactly these
keys (omit a key when the message does not mention it):
{"user_id": "...", "task_name": "...", "task_description": "...", "date": "YYYY-MM-DD"}

User message: %s`

const updateExtractPromptTemplate = `Extract which task the user wants to change and the new values.
Reply with a single JSON object and nothing else, using exactly these
keys (omit a key when the message does not mention it):
{"task_id": "...", "task_name": "...", "task_description": "...", "task_status": "pending|in_progress|completed|cancelled", "date": "YYYY-MM-DD"}

User message: %s`

const deleteExtractPromptTemplate = `Extract which task the user wants to delete.
Reply with a single JSON object and nothing else:
{"task_id": "..."}

User message: %s`

const searchExtractPromptTemplate = `Extract the search filters from the user message.
Reply with a single JSON object and nothing else, using exactly these
keys (omit a key when the message does not mention it):
{"user_id": "...", "task_id": "...", "task_name": "...", "task_description": "...", "task_status": "pending|in_progress|completed|cancelled", "date": "YYYY-MM-DD", "date_from": "YYYY-MM-DD", "date_to": "YYYY-MM-DD"}

User message: %s`

const genericAnswerPromptTemplate = `You are a friendly task management assistant.
Answer the user's question briefly and helpfully.

User message: %s`
