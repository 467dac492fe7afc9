// Package pattern 实现子类型 / 跨类型偏好画像：
// 在粗粒度类型权重之下，识别"喜欢动作片但回避超英动作"这类细微偏好。
package pattern

import "strings"

// Subgenre 是规范分类法中的一个子类型条目。
type Subgenre struct {
	Key        string   // 规范 key，如 "folk-horror"
	Name       string   // 展示名
	KeywordIDs []string // 权威标签标识（精确匹配，优先）
	NameHints  []string // 标签名子串（仅在标识缺失时兜底）
}

// Taxonomy 是父类型 -> 子类型的规范分类法。
// 子类型只能归属于它声明的父类型：为 Horror 标注的子类型绝不会
// 被记到同一部影片的 Comedy 条目上（防跨类型泄漏）。
type Taxonomy struct {
	byParent map[string][]Subgenre // 父类型名小写 -> 子类型
}

// NewTaxonomy 由父类型表构建分类法。
func NewTaxonomy(entries map[string][]Subgenre) *Taxonomy {
	byParent := make(map[string][]Subgenre, len(entries))
	for parent, subs := range entries {
		byParent[strings.ToLower(parent)] = subs
	}
	return &Taxonomy{byParent: byParent}
}

// Subgenres 返回某父类型下的子类型条目。
func (t *Taxonomy) Subgenres(parentGenre string) []Subgenre {
	return t.byParent[strings.ToLower(parentGenre)]
}

// MatchKeyword 在指定父类型下匹配一个标签：
//   - 标签带权威标识时只做标识精确匹配（权威途径）
//   - 标识缺失时退化为名称子串匹配（尽力而为）
//
// 返回命中的子类型 key；未命中返回 ("", false)。
func (t *Taxonomy) MatchKeyword(parentGenre string, kwID, kwName string) (string, bool) {
	subs := t.Subgenres(parentGenre)
	if len(subs) == 0 {
		return "", false
	}

	if kwID != "" {
		for _, sub := range subs {
			for _, id := range sub.KeywordIDs {
				if id == kwID {
					return sub.Key, true
				}
			}
		}
		return "", false
	}

	lowered := strings.ToLower(kwName)
	if lowered == "" {
		return "", false
	}
	for _, sub := range subs {
		for _, hint := range sub.NameHints {
			if strings.Contains(lowered, hint) {
				return sub.Key, true
			}
		}
	}
	return "", false
}

// DefaultTaxonomy 返回内置的影片子类型分类法。
// 标识取自元数据提供方的标签体系；NameHints 一律小写。
func DefaultTaxonomy() *Taxonomy {
	return NewTaxonomy(map[string][]Subgenre{
		"Horror": {
			{Key: "folk-horror", Name: "Folk Horror", KeywordIDs: []string{"310035"}, NameHints: []string{"folk horror"}},
			{Key: "slasher", Name: "Slasher", KeywordIDs: []string{"12339"}, NameHints: []string{"slasher"}},
			{Key: "zombie", Name: "Zombie", KeywordIDs: []string{"12377"}, NameHints: []string{"zombie", "undead"}},
			{Key: "haunted-house", Name: "Haunted House", KeywordIDs: []string{"10224"}, NameHints: []string{"haunted", "haunting"}},
			{Key: "body-horror", Name: "Body Horror", KeywordIDs: []string{"163053"}, NameHints: []string{"body horror"}},
			{Key: "psychological-horror", Name: "Psychological Horror", KeywordIDs: []string{"12565"}, NameHints: []string{"psychological horror"}},
			{Key: "found-footage", Name: "Found Footage", KeywordIDs: []string{"163166"}, NameHints: []string{"found footage"}},
			{Key: "vampire", Name: "Vampire", KeywordIDs: []string{"3133"}, NameHints: []string{"vampire"}},
		},
		"Action": {
			{Key: "superhero", Name: "Superhero", KeywordIDs: []string{"9715", "180547"}, NameHints: []string{"superhero", "comic book"}},
			{Key: "martial-arts", Name: "Martial Arts", KeywordIDs: []string{"779"}, NameHints: []string{"martial arts", "kung fu"}},
			{Key: "spy", Name: "Spy", KeywordIDs: []string{"470"}, NameHints: []string{"spy", "espionage"}},
			{Key: "heist", Name: "Heist", KeywordIDs: []string{"10051"}, NameHints: []string{"heist", "robbery"}},
			{Key: "disaster", Name: "Disaster", KeywordIDs: []string{"12193"}, NameHints: []string{"disaster"}},
		},
		"Comedy": {
			{Key: "romantic-comedy", Name: "Romantic Comedy", KeywordIDs: []string{"9799"}, NameHints: []string{"romantic comedy", "romcom"}},
			{Key: "dark-comedy", Name: "Dark Comedy", KeywordIDs: []string{"10123"}, NameHints: []string{"dark comedy", "black comedy"}},
			{Key: "parody", Name: "Parody", KeywordIDs: []string{"9755"}, NameHints: []string{"parody", "spoof"}},
			{Key: "mockumentary", Name: "Mockumentary", KeywordIDs: []string{"11800"}, NameHints: []string{"mockumentary"}},
		},
		"Science Fiction": {
			{Key: "cyberpunk", Name: "Cyberpunk", KeywordIDs: []string{"12190"}, NameHints: []string{"cyberpunk"}},
			{Key: "space-opera", Name: "Space Opera", KeywordIDs: []string{"4652"}, NameHints: []string{"space opera", "space battle"}},
			{Key: "time-travel", Name: "Time Travel", KeywordIDs: []string{"4379"}, NameHints: []string{"time travel"}},
			{Key: "dystopia", Name: "Dystopia", KeywordIDs: []string{"4565"}, NameHints: []string{"dystopia", "dystopian"}},
			{Key: "alien-invasion", Name: "Alien Invasion", KeywordIDs: []string{"14909"}, NameHints: []string{"alien invasion"}},
		},
		"Drama": {
			{Key: "coming-of-age", Name: "Coming of Age", KeywordIDs: []string{"10683"}, NameHints: []string{"coming of age"}},
			{Key: "courtroom", Name: "Courtroom", KeywordIDs: []string{"803"}, NameHints: []string{"courtroom", "trial"}},
			{Key: "biopic", Name: "Biopic", KeywordIDs: []string{"5565"}, NameHints: []string{"biography", "biopic"}},
			{Key: "period-drama", Name: "Period Drama", KeywordIDs: []string{"12994"}, NameHints: []string{"period drama", "costume drama"}},
		},
		"Thriller": {
			{Key: "neo-noir", Name: "Neo-noir", KeywordIDs: []string{"207268"}, NameHints: []string{"neo-noir", "neo noir"}},
			{Key: "conspiracy", Name: "Conspiracy", KeywordIDs: []string{"10410"}, NameHints: []string{"conspiracy"}},
			{Key: "serial-killer", Name: "Serial Killer", KeywordIDs: []string{"10714"}, NameHints: []string{"serial killer"}},
			{Key: "psychological-thriller", Name: "Psychological Thriller", KeywordIDs: []string{"11546"}, NameHints: []string{"psychological thriller"}},
		},
		"Fantasy": {
			{Key: "sword-and-sorcery", Name: "Sword and Sorcery", KeywordIDs: []string{"234213"}, NameHints: []string{"sword and sorcery"}},
			{Key: "urban-fantasy", Name: "Urban Fantasy", KeywordIDs: []string{"188973"}, NameHints: []string{"urban fantasy"}},
			{Key: "fairy-tale", Name: "Fairy Tale", KeywordIDs: []string{"3205"}, NameHints: []string{"fairy tale"}},
		},
		"Crime": {
			{Key: "gangster", Name: "Gangster", KeywordIDs: []string{"10291"}, NameHints: []string{"gangster", "mafia", "mob"}},
			{Key: "heist", Name: "Heist", KeywordIDs: []string{"10051"}, NameHints: []string{"heist", "robbery"}},
			{Key: "film-noir", Name: "Film Noir", KeywordIDs: []string{"9807"}, NameHints: []string{"film noir"}},
		},
		"Animation": {
			{Key: "anime", Name: "Anime", KeywordIDs: []string{"210024"}, NameHints: []string{"anime"}},
			{Key: "stop-motion", Name: "Stop Motion", KeywordIDs: []string{"12990"}, NameHints: []string{"stop motion"}},
		},
		"Western": {
			{Key: "spaghetti-western", Name: "Spaghetti Western", KeywordIDs: []string{"9457"}, NameHints: []string{"spaghetti western"}},
			{Key: "revisionist-western", Name: "Revisionist Western", KeywordIDs: []string{"255999"}, NameHints: []string{"revisionist western"}},
		},
	})
}
