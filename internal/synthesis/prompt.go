package synthesis

const mergeSystemPrompt = `You merge several related JSON results into one document.

Requirements:
1. Keep the data structure intact.
2. Merge related fields and avoid duplication.
3. If the structures differ, create a suitable container.
4. Keep value types correct.
5. Return valid JSON only.%s`

const textSystemPrompt = `You integrate the results of several sub-tasks into one answer.

Background:
- Original task: %s
- Complexity: %s
- Context relevance: %.2f

Requirements:
1. Combine every sub-task result into a complete answer.
2. Keep the logic coherent and the structure clear.
3. Remove repetition.
4. Add transitions where needed.
5. Adapt the style to the task type.%s`

const templateRequirement = "\n6. The final output must follow this JSON shape exactly:\n%s"
