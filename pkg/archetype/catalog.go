// Package archetype 定义了「24 种动物 × 4 种元素」体系的固定目录。
package archetype

// 支持的语言。
const (
	LangRU = "ru"
	LangEN = "en"
	LangES = "es"
	LangPT = "pt"
)

// 性别形式。性别只影响原型名称的语法形式，不影响分析。
const (
	GenderMale        = "male"
	GenderFemale      = "female"
	GenderUnspecified = "unspecified"
)

// 元素代码。与原系统一致，数据库中保存的是俄文名称。
const (
	ElementAir   = "Воздух"
	ElementWater = "Вода"
	ElementFire  = "Огонь"
	ElementEarth = "Земля"
)

// Animals 是全部 24 个允许的动物代码，顺序即提示词中的顺序。
var Animals = []string{
	"Wolf", "Lion", "Tiger", "Lynx", "Panther", "Bear", "Fox", "Wolverine", "Deer",
	"Monkey", "Rabbit", "Buffalo", "Ram", "Capybara", "Elephant", "Horse",
	"Eagle", "Owl", "Raven", "Parrot", "Snake", "Crocodile", "Turtle", "Lizard",
}

// Elements 是全部允许的元素代码。
var Elements = []string{ElementAir, ElementWater, ElementFire, ElementEarth}

// Languages 是全部支持的语言。
var Languages = []string{LangRU, LangEN, LangES, LangPT}

var (
	animalSet  = toSet(Animals)
	elementSet = toSet(Elements)
	genderSet  = toSet([]string{GenderMale, GenderFemale, GenderUnspecified})
	langSet    = toSet(Languages)
)

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// IsAnimal 判断是否为允许的动物代码。
func IsAnimal(code string) bool {
	_, ok := animalSet[code]
	return ok
}

// IsElement 判断是否为允许的元素代码。
func IsElement(code string) bool {
	_, ok := elementSet[code]
	return ok
}

// IsGender 判断是否为允许的性别形式。
func IsGender(g string) bool {
	_, ok := genderSet[g]
	return ok
}

// IsLang 判断是否为支持的语言。
func IsLang(lang string) bool {
	_, ok := langSet[lang]
	return ok
}

// NormalizeGender 把未知取值归一为 unspecified。
func NormalizeGender(g string) string {
	if IsGender(g) {
		return g
	}
	return GenderUnspecified
}
