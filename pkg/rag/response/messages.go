package response

// DefaultSource is cited when an answer had no supporting chunks.
const DefaultSource = "https://www.na.edu"

// ContactSource is cited with the apology when generation fails.
const ContactSource = "https://www.na.edu/contact-us/"

const Apology = "I apologize, but I'm having trouble processing your request at the moment. Please try again later or contact NAU directly for assistance."
