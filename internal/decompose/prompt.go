package decompose

// systemPrompt is the decomposition instruction; %s is the context analysis JSON.
const systemPrompt = `You are a task decomposition expert. Split the task using the context below.

Context analysis:
%s

Requirements:
1. Sub-tasks should be independent and executable.
2. Use the context to choose the split.
3. Match the granularity to the task complexity.
4. Give each sub-task a sensible priority (1 runs first).
5. Consider dependencies between sub-tasks.

Output format:
- Return ONLY a valid JSON array, with no other text, explanation, or markdown fences.
- Every element must contain: id, description, priority, estimatedComplexity.
- Example: [{"id": "subtask_1", "description": "what to do", "priority": 1, "estimatedComplexity": "high"}]`

// userPrompt asks for the plan; %d is the sub-task count and %s the prompt.
const userPrompt = `%s %d sub-tasks:
%s

Return only the JSON array.`
