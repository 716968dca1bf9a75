package profanity

// profaneWords holds normalized single-word entries. Entries containing a
// space match hyphenated compounds after normalization ("mother-fucker").
var profaneWords = []string{
	// f
	"fuck", "fucks", "fucking", "fucked", "fucker", "fuckers", "fuckin",
	"fuk", "fuking", "fuked", "fuker", "fck", "fcuk", "phuck", "phuk",
	"motherfucker", "motherfuckers", "motherfucking", "motherfuckin", "mothafucker", "mothafucka",
	"fuckhead", "fuckface", "fuckwit", "fucktard", "dumbfuck", "clusterfuck", "mother fucker",
	// s
	"shit", "shits", "shitting", "shitted", "shitter", "shite", "shitty", "shyt",
	"bullshit", "bullshitting", "bullshitter", "horseshit", "chickenshit", "apeshit",
	"shithead", "shitheads", "shitface", "shitbag", "shitstain", "shitshow", "dipshit", "dipshits",
	"bull shit",
	// b
	"bitch", "bitches", "bitching", "bitched", "bitchy", "bitchin", "biatch", "sumbitch", "bitchass",
	// a
	"ass", "asshole", "assholes", "asshat", "asswipe", "assclown", "arse", "arsehole", "arseholes",
	"dumbass", "smartass", "fatass", "lardass", "jackass",
	// d
	"damn", "damned", "dammit", "damnit", "goddamn", "goddamned", "goddamnit", "goddammit",
	"dick", "dicks", "dickhead", "dickface", "dickwad", "dickweed",
	// h
	"hell",
	// c
	"cunt", "cunts", "cunty", "cunting", "cock", "cocks", "cocksucker", "cocksuckers", "crap", "crappy",
	// p
	"pussy", "pussies", "piss", "pissing", "pissed", "prick", "pricks",
	// sexual and other
	"slut", "sluts", "slutty", "whore", "whores", "whoring",
	"bastard", "bastards", "twat", "twats", "wanker", "wankers", "wank", "wanking",
	"douche", "douchebag", "douchebags", "bollocks", "bugger", "buggered", "tosser", "tossers",
	"knobhead", "bellend",
	// slurs
	"nigger", "niggers", "nigga", "niggas", "niggaz",
	"faggot", "faggots", "fag", "fags", "dyke", "dykes", "tranny", "trannies",
	"chink", "chinks", "spic", "spics", "kike", "kikes", "gook", "gooks",
	"wetback", "wetbacks", "raghead", "ragheads", "towelhead", "towelheads",
	"beaner", "beaners", "zipperhead", "retard", "retards", "retarded",
}

// phrases are matched over consecutive raw tokens, lowercased and trimmed of
// surrounding punctuation. A phrase window is checked before the single-word
// check of its final token so phrases ending in a profane word still match.
var phrases = []string{
	"son of a bitch",
	"what the fuck",
	"what the hell",
	"what the shit",
	"holy shit",
	"oh shit",
	"no shit",
	"eat shit",
	"piece of shit",
	"full of shit",
	"piece of crap",
	"oh my god",
	"god damn",
	"jesus fucking christ",
}

// allowedWords can never be profane, whatever they contain.
var allowedWords = []string{
	"and", "the", "are", "was", "were", "been", "being", "have", "has", "had", "does", "did",
	"will", "would", "could", "should", "may", "might", "can", "must",
	"this", "that", "these", "those", "what", "which", "who", "whom",
	"where", "when", "why", "how", "all", "each", "every", "some", "any",
	"more", "most", "many", "much", "few", "little", "other", "another",
	"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"you", "your", "yours", "she", "they", "them", "their",
	"mine", "our", "ours", "his", "her", "hers", "its",
	"for", "with", "from", "into", "onto",
	"down", "out", "off", "over", "under", "above", "below", "between",
	"about", "across", "through", "during", "before", "after", "while",
	"than", "like", "such", "just", "only", "also", "even", "still",
	"very", "too", "quite", "rather", "really", "well", "now", "then", "here", "there",
	"yes", "not", "never", "always", "often", "sometimes", "usually",
	"hand", "class", "pass", "glass", "grass", "assume", "assist", "bass", "mass",
	"hello", "shell", "scrap", "cocktail", "dickens", "therapist", "analysis",
}

// elongations catch stretched spellings ("fuuuuck", "shiiit"). Each pattern is
// anchored to a whole normalized word.
var elongations = []string{
	`^f+u+c+k+(s|ed|er|ers|ing|in|y)?$`,
	`^s+h+i+t+(s|ty|ting|ter)?$`,
	`^b+i+t+c+h+(es|y|ing|in)?$`,
	`^a+s+s+(hole|holes)?$`,
	`^d+a+m+n+(it|ed)?$`,
	`^d+i+c+k+(s|head)?$`,
	`^c+o+c+k+s?$`,
	`^p+u+s+s+y+$`,
	`^c+u+n+t+s?$`,
	`^n+i+g+g+(a+|e+r+)(s|z)?$`,
}
