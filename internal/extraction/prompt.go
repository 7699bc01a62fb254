package extraction

// SystemPrompt is the extraction contract sent with every request.
const SystemPrompt = `You are a meticulous data analyst. You will be given the visible text of a web page about the fastest production cars in history. Extract every car mentioned into a structured record set.

FIELDS (one object per car, use exactly these keys):
  - "Year" (integer, 4 digits)
  - "Make and model" (string, make and model combined)
  - "Horsepower" (integer, if available)
  - "Top speed (km/h)" (integer)
  - "Engine displacement (L)" (float, if available)
  - "Engine type" (string, if available), for example "V8", "V12", "Inline-4", "Electric", "Hybrid"

OUTPUT:
  - Respond with a single JSON array and nothing else.
  - Do not wrap the array in prose or explanations.
  - Use null for any value that is missing or ambiguous.
  - Numbers must be plain JSON numbers without units.

RULES:
  - Speeds given in mph must be converted to km/h by multiplying by 1.609.
  - Do not invent values that are not present in the text.`

// UserPrompt prefixes the scraped text in the user message.
const UserPrompt = "Here is text from scraping a website about fastest cars. Extract the relevant information into a JSON array following the specified format:\n\n"
