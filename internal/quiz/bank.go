package quiz

import (
	"math/rand"

	"whobible/backend/internal/config"
	"whobible/backend/internal/models"
)

const questionType = "who-am-i"

type bankEntry struct {
	prompt     string
	answer     string
	refs       []string
	difficulty string
}

// Bank is the embedded who-am-I question bank over biblical figures.
type Bank struct {
	entries []bankEntry
}

func NewBank() *Bank {
	return &Bank{entries: defaultEntries}
}

// Generate filters the bank by difficulty, shuffles, truncates to the
// requested count and attaches four shuffled choices per question. When a
// tier runs short the remainder is drawn from the other tiers; a request
// larger than the whole bank is clamped to its size.
func (b *Bank) Generate(settings models.RoomSettings) ([]models.Question, error) {
	switch settings.Difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return nil, ErrUnknownDifficulty
	}

	n := settings.NumQuestions
	if n <= 0 {
		n = config.DefaultQuestions
	}

	var tier, rest []bankEntry
	for _, e := range b.entries {
		if e.difficulty == settings.Difficulty {
			tier = append(tier, e)
		} else {
			rest = append(rest, e)
		}
	}
	shuffleEntries(tier)
	shuffleEntries(rest)
	picked := tier
	if need := n - len(picked); need > 0 {
		if need > len(rest) {
			need = len(rest)
		}
		picked = append(picked, rest[:need]...)
	}
	if n > len(picked) {
		n = len(picked)
	}
	picked = picked[:n]

	questions := make([]models.Question, 0, n)
	for _, e := range picked {
		questions = append(questions, models.Question{
			Type:    questionType,
			Prompt:  e.prompt,
			Answer:  e.answer,
			Choices: b.choicesFor(e),
			Ref:     e.refs,
		})
	}
	return questions, nil
}

// choicesFor builds four options: the answer plus three distinct decoy
// names from the rest of the bank, shuffled. Fewer decoys means fewer
// options, never a panic.
func (b *Bank) choicesFor(e bankEntry) []string {
	seen := map[string]bool{e.answer: true}
	var pool []string
	for _, other := range b.entries {
		if !seen[other.answer] {
			seen[other.answer] = true
			pool = append(pool, other.answer)
		}
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	decoys := 3
	if len(pool) < decoys {
		decoys = len(pool)
	}
	choices := append([]string{e.answer}, pool[:decoys]...)
	rand.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
	return choices
}

func shuffleEntries(entries []bankEntry) {
	rand.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
}

var defaultEntries = []bankEntry{
	// easy
	{"I led Israel out of Egypt and received the Law on Mount Sinai.", "Moses", []string{"Exodus 3", "Exodus 20"}, models.DifficultyEasy},
	{"I was a shepherd boy who felled a giant with a sling and later became king.", "David", []string{"1 Samuel 17"}, models.DifficultyEasy},
	{"I built an ark and rode out a flood that covered the earth.", "Noah", []string{"Genesis 6-9"}, models.DifficultyEasy},
	{"I was the first man, formed from the dust of the ground.", "Adam", []string{"Genesis 2:7"}, models.DifficultyEasy},
	{"I spent three days and nights inside a great fish after fleeing my mission.", "Jonah", []string{"Jonah 1:17"}, models.DifficultyEasy},
	{"I was the Philistine champion from Gath, over nine feet tall.", "Goliath", []string{"1 Samuel 17:4"}, models.DifficultyEasy},
	{"I was betrayed by my brothers, sold into Egypt, and rose to rule it.", "Joseph", []string{"Genesis 37", "Genesis 41"}, models.DifficultyEasy},
	{"I baptized in the Jordan and ate locusts and wild honey.", "John the Baptist", []string{"Matthew 3:4"}, models.DifficultyEasy},
	{"I denied my teacher three times before the rooster crowed.", "Peter", []string{"Luke 22:61"}, models.DifficultyEasy},
	{"I asked for wisdom above riches and built the first temple.", "Solomon", []string{"1 Kings 3", "1 Kings 6"}, models.DifficultyEasy},
	{"I walked with my father Abraham up the mountain carrying the wood.", "Isaac", []string{"Genesis 22"}, models.DifficultyEasy},
	{"My hair was my strength until it was cut while I slept.", "Samson", []string{"Judges 16"}, models.DifficultyEasy},
	// medium
	{"I left Ur at God's call and was promised descendants like the stars.", "Abraham", []string{"Genesis 12", "Genesis 15:5"}, models.DifficultyMedium},
	{"I gleaned in the fields of Boaz and became great-grandmother to a king.", "Ruth", []string{"Ruth 2", "Ruth 4:17"}, models.DifficultyMedium},
	{"I became queen of Persia and exposed a plot to destroy my people.", "Esther", []string{"Esther 7"}, models.DifficultyMedium},
	{"I challenged the prophets of Baal on Mount Carmel and fire fell.", "Elijah", []string{"1 Kings 18"}, models.DifficultyMedium},
	{"I survived a night in a den of lions under King Darius.", "Daniel", []string{"Daniel 6"}, models.DifficultyMedium},
	{"I led Israel across the Jordan and around the walls of Jericho.", "Joshua", []string{"Joshua 3", "Joshua 6"}, models.DifficultyMedium},
	{"I persecuted the church until a light on the Damascus road stopped me.", "Paul", []string{"Acts 9"}, models.DifficultyMedium},
	{"I wrestled all night at Peniel and left with a new name and a limp.", "Jacob", []string{"Genesis 32"}, models.DifficultyMedium},
	{"I was a tax collector who climbed a sycamore tree to see over the crowd.", "Zacchaeus", []string{"Luke 19"}, models.DifficultyMedium},
	{"I doubted the resurrection until I touched the wounds myself.", "Thomas", []string{"John 20:27"}, models.DifficultyMedium},
	{"My donkey spoke to me on the road when an angel blocked the way.", "Balaam", []string{"Numbers 22"}, models.DifficultyMedium},
	{"I was the forerunner's mother, barren until old age.", "Elizabeth", []string{"Luke 1"}, models.DifficultyMedium},
	// hard
	{"I was king of Salem and priest of God Most High, blessing Abram with bread and wine.", "Melchizedek", []string{"Genesis 14:18"}, models.DifficultyHard},
	{"I was cupbearer to Artaxerxes and rebuilt Jerusalem's wall in fifty-two days.", "Nehemiah", []string{"Nehemiah 2", "Nehemiah 6:15"}, models.DifficultyHard},
	{"I tested God with a fleece, twice, before routing Midian with three hundred men.", "Gideon", []string{"Judges 6-7"}, models.DifficultyHard},
	{"I was shown a valley of dry bones that rattled back to life.", "Ezekiel", []string{"Ezekiel 37"}, models.DifficultyHard},
	{"I judged Israel under a palm tree and rode to battle with Barak.", "Deborah", []string{"Judges 4"}, models.DifficultyHard},
	{"I was a seller of purple cloth in Philippi, the first convert in Europe.", "Lydia", []string{"Acts 16:14"}, models.DifficultyHard},
	{"My sundial moved backward ten steps as a sign my illness would end.", "Hezekiah", []string{"2 Kings 20"}, models.DifficultyHard},
	{"I was lowered into a muddy cistern for prophesying Jerusalem's fall.", "Jeremiah", []string{"Jeremiah 38"}, models.DifficultyHard},
	{"They called me the son of encouragement; I vouched for a feared convert.", "Barnabas", []string{"Acts 4:36", "Acts 9:27"}, models.DifficultyHard},
	{"Of my generation only Joshua and I entered the promised land.", "Caleb", []string{"Numbers 14:30"}, models.DifficultyHard},
	{"I fell dead after lying about the price of a field I had sold.", "Ananias", []string{"Acts 5"}, models.DifficultyHard},
	{"I ran to meet the chariot of an Ethiopian official reading Isaiah.", "Philip", []string{"Acts 8"}, models.DifficultyHard},
}
