// Package oracle holds the Sephiroth oracle deck.
package oracle

import (
	"math/rand/v2"
	"time"
)

// Timings of the draw ritual shown by the oracle page.
const (
	MeditationSeconds = 7
	RevealDelay       = 1500 * time.Millisecond
)

// Card is one sephirah of the deck.
type Card struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Hebrew      string `json:"hebrew"`
	From        string `json:"from"` // gradient start color
	To          string `json:"to"`   // gradient end color
	Message     string `json:"message"`
	Affirmation string `json:"affirmation"`
	Guidance    string `json:"guidance"`
}

// Deck returns a copy of the cards in Tree of Life order.
func Deck() []Card {
	return append([]Card(nil), cards...)
}

// Find returns the card with the given id.
func Find(id int) (Card, bool) {
	for _, c := range cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// Draw picks a card uniformly at random. A nil rng uses the global source.
func Draw(rng *rand.Rand) Card {
	if rng == nil {
		return cards[rand.IntN(len(cards))]
	}
	return cards[rng.IntN(len(cards))]
}

var cards = []Card{
	{
		ID: 1, Name: "Kether — A Coroa", Hebrew: "כתר", From: "#ffffff", To: "#f3f4f6",
		Message:     "Um novo ciclo espiritual começa.",
		Affirmation: "Eu me alinho com meu caminho mais elevado.",
		Guidance:    "Você está entrando em uma fase de consciência expandida. O chakra coronário se abre, convidando a luz divina para sua consciência. Confie nos começos que surgem agora — eles carregam a semente do seu propósito mais elevado. Este é um tempo de iniciação espiritual e puro potencial.",
	},
	{
		ID: 2, Name: "Chokmah — Sabedoria", Hebrew: "חכמה", From: "#9ca3af", To: "#4b5563",
		Message:     "A sabedoria divina flui através de você.",
		Affirmation: "Eu confio no meu conhecimento interior.",
		Guidance:    "A força primordial da criação se agita dentro de você. Chokmah representa o primeiro lampejo de inspiração, o momento antes do pensamento tomar forma. Preste atenção a insights súbitos e flashes intuitivos. O universo fala com você através de símbolos, sincronicidades e sonhos.",
	},
	{
		ID: 3, Name: "Binah — Entendimento", Hebrew: "בינה", From: "#334155", To: "#0f172a",
		Message:     "O entendimento vem através da quietude.",
		Affirmation: "Eu abraço a sabedoria da paciência.",
		Guidance:    "A Grande Mãe recebe e dá forma a todas as coisas. Este é um tempo para contemplação, para permitir que as ideias se gestam. Não tenha pressa. O entendimento que você busca virá quando você criar espaço para ele. Honre a escuridão como o útero da criação.",
	},
	{
		ID: 4, Name: "Chesed — Misericórdia", Hebrew: "חסד", From: "#60a5fa", To: "#2563eb",
		Message:     "A abundância flui para aqueles que dão livremente.",
		Affirmation: "Eu sou um canal para o amor divino.",
		Guidance:    "A misericórdia ilimitada do universo se derrama. Chesed pede que você incorpore generosidade, compaixão e bondade amorosa. Onde você pode ser mais generoso? Como você pode estender graça a si mesmo e aos outros? Este é um tempo de expansão e recebimento através do dar.",
	},
	{
		ID: 5, Name: "Geburah — Força", Hebrew: "גבורה", From: "#ef4444", To: "#b91c1c",
		Message:     "A verdadeira força está no discernimento.",
		Affirmation: "Eu honro meus limites com amor.",
		Guidance:    "A espada do discernimento corta o que não serve mais. Geburah chama você para estabelecer limites firmes, dizer não quando necessário e honrar seus limites. Isso não é dureza — é o amor protetor que cria espaço saudável para o crescimento. Libere com gratidão.",
	},
	{
		ID: 6, Name: "Tiphareth — Beleza", Hebrew: "תפארת", From: "#facc15", To: "#f59e0b",
		Message:     "Seu coração é o centro da transformação.",
		Affirmation: "Eu irradio minha luz autêntica.",
		Guidance:    "O sol dourado da alma brilha no centro da Árvore. Tiphareth representa equilíbrio, beleza e o coração desperto. Você é chamado a integrar todos os aspectos de si mesmo — luz e sombra — em uma totalidade harmoniosa. Seu eu autêntico está pronto para brilhar.",
	},
	{
		ID: 7, Name: "Netzach — Vitória", Hebrew: "נצח", From: "#34d399", To: "#16a34a",
		Message:     "A paixão guia você em direção à vitória.",
		Affirmation: "Eu confio nos meus desejos como guias sagrados.",
		Guidance:    "A força da natureza, do desejo e da paixão criativa move-se através de você. Netzach celebra a beleza da emoção e o poder da atração. O que você verdadeiramente deseja? Siga o anseio do seu coração — ele conhece o caminho. Arte, beleza e natureza são seus aliados agora.",
	},
	{
		ID: 8, Name: "Hod — Esplendor", Hebrew: "הוד", From: "#fb923c", To: "#ea580c",
		Message:     "As palavras têm o poder de criar a realidade.",
		Affirmation: "Eu me comunico com clareza e verdade.",
		Guidance:    "O reino do pensamento, linguagem e comunicação aguarda sua atenção. Hod convida você a examinar suas crenças e as palavras que você fala. Elas estão alinhadas com sua visão mais elevada? Este é um tempo para estudo, aprendizado e refinamento da sua paisagem mental.",
	},
	{
		ID: 9, Name: "Yesod — Fundamento", Hebrew: "יסוד", From: "#a78bfa", To: "#9333ea",
		Message:     "Seus sonhos revelam verdades ocultas.",
		Affirmation: "Eu confio na orientação do meu subconsciente.",
		Guidance:    "O reino lunar dos sonhos, intuição e subconsciente chama por você. Yesod é o portal entre os mundos espiritual e material. Preste muita atenção aos seus sonhos, seus padrões emocionais e às imagens que surgem na meditação. O véu está fino.",
	},
	{
		ID: 10, Name: "Malkuth — Reino", Hebrew: "מלכות", From: "#b45309", To: "#57534e",
		Message:     "O sagrado vive no cotidiano.",
		Affirmation: "Eu honro o divino em todas as coisas.",
		Guidance:    "O reino terreno da manifestação e realidade física te acolhe. Malkuth lembra que a jornada espiritual culmina no mundo material. Ancore-se. Cuide do seu corpo, da sua casa, do seu trabalho. O divino está presente em cada momento da vida comum.",
	},
}
