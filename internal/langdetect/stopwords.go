package langdetect

// Words that are stop words in both languages ("a", "as", "do", "no", "me",
// "so"...) are left out of both sets so they never tip the balance.

var englishStopWords = words(
	"the", "of", "and", "to", "in", "is", "are", "was", "were", "be", "been",
	"being", "have", "has", "had", "does", "did", "will", "would", "could",
	"should", "may", "might", "can", "for", "on", "with", "at", "by", "from",
	"into", "through", "during", "before", "after", "above", "below", "but",
	"or", "nor", "not", "yet", "both", "either", "neither", "each", "every",
	"all", "any", "few", "more", "most", "other", "some", "such", "only",
	"own", "same", "than", "too", "very", "just", "how", "what", "which",
	"who", "whom", "this", "that", "these", "those", "it", "its", "about",
	"up", "out", "an", "he", "she", "they", "we", "you", "his", "her",
	"their", "our", "your", "there", "here", "when", "where", "why", "over",
	"under", "again", "then", "once", "because", "while", "if", "also",
	"says", "said", "new",
)

var portugueseStopWords = words(
	"o", "os", "e", "é", "da", "das", "dos", "de", "em", "um", "uma", "uns",
	"umas", "para", "com", "não", "mais", "mas", "ao", "aos", "pelo",
	"pela", "pelos", "pelas", "na", "nas", "nos", "num", "numa", "que",
	"ou", "seu", "sua", "seus", "suas", "ele", "ela", "eles", "elas", "este",
	"esta", "estes", "estas", "esse", "essa", "esses", "essas", "isso",
	"isto", "aquele", "aquela", "já", "também", "quando", "muito", "muita",
	"nem", "há", "sem", "sobre", "entre", "depois", "até", "foi", "ser",
	"está", "estão", "são", "tem", "têm", "ter", "pode", "podem", "mesmo",
	"quem", "onde", "como", "porque", "após", "diz", "afirma", "segundo",
	"nova", "novo", "à", "às",
)

func words(ws ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		set[w] = struct{}{}
	}
	return set
}
