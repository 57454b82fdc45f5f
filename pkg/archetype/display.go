package archetype

// 俄语中原型名称随性别变化；未指定性别时使用阳性（中性）形式。
var animalRU = map[string][2]string{
	"Wolf":      {"Волк", "Волчица"},
	"Lion":      {"Лев", "Львица"},
	"Tiger":     {"Тигр", "Тигрица"},
	"Lynx":      {"Рысь", "Рысь"},
	"Panther":   {"Пантера", "Пантера"},
	"Bear":      {"Медведь", "Медведица"},
	"Fox":       {"Койот", "Лиса"},
	"Wolverine": {"Росомаха", "Росомаха"},
	"Deer":      {"Олень", "Лань"},
	"Monkey":    {"Обезьяна", "Обезьяна"},
	"Rabbit":    {"Кролик", "Кролик"},
	"Buffalo":   {"Буйвол", "Буйволица"},
	"Ram":       {"Баран", "Ибекса"},
	"Capybara":  {"Капибара", "Капибара"},
	"Elephant":  {"Слон", "Слониха"},
	"Horse":     {"Конь", "Лошадь"},
	"Eagle":     {"Орёл", "Орлица"},
	"Owl":       {"Филин", "Сова"},
	"Raven":     {"Ворон", "Ворона"},
	"Parrot":    {"Попугай", "Попугаиха"},
	"Snake":     {"Змей", "Змея"},
	"Crocodile": {"Крокодил", "Крокодил"},
	"Turtle":    {"Черепаха", "Черепаха"},
	"Lizard":    {"Ящерица", "Ящерица"},
}

var animalES = map[string]string{
	"Wolf": "Lobo", "Lion": "León", "Tiger": "Tigre", "Lynx": "Lince",
	"Panther": "Pantera", "Bear": "Oso", "Fox": "Zorro", "Wolverine": "Glotón",
	"Deer": "Ciervo", "Monkey": "Mono", "Rabbit": "Conejo", "Buffalo": "Búfalo",
	"Ram": "Carnero", "Capybara": "Capibara", "Elephant": "Elefante", "Horse": "Caballo",
	"Eagle": "Águila", "Owl": "Búho", "Raven": "Cuervo", "Parrot": "Loro",
	"Snake": "Serpiente", "Crocodile": "Cocodrilo", "Turtle": "Tortuga", "Lizard": "Lagarto",
}

var animalPT = map[string]string{
	"Wolf": "Lobo", "Lion": "Leão", "Tiger": "Tigre", "Lynx": "Lince",
	"Panther": "Pantera", "Bear": "Urso", "Fox": "Raposa", "Wolverine": "Carcaju",
	"Deer": "Cervo", "Monkey": "Macaco", "Rabbit": "Coelho", "Buffalo": "Búfalo",
	"Ram": "Carneiro", "Capybara": "Capivara", "Elephant": "Elefante", "Horse": "Cavalo",
	"Eagle": "Águia", "Owl": "Coruja", "Raven": "Corvo", "Parrot": "Papagaio",
	"Snake": "Serpente", "Crocodile": "Crocodilo", "Turtle": "Tartaruga", "Lizard": "Lagarto",
}

// ElementLabels 是各语言下的元素名称（主格）。
var ElementLabels = map[string]map[string]string{
	LangRU: {ElementAir: "Воздух", ElementWater: "Вода", ElementFire: "Огонь", ElementEarth: "Земля"},
	LangEN: {ElementAir: "Air", ElementWater: "Water", ElementFire: "Fire", ElementEarth: "Earth"},
	LangES: {ElementAir: "Aire", ElementWater: "Agua", ElementFire: "Fuego", ElementEarth: "Tierra"},
	LangPT: {ElementAir: "Ar", ElementWater: "Água", ElementFire: "Fogo", ElementEarth: "Terra"},
}

// 俄语原型行里元素使用属格：«Волк Огня»。
var elementGenitiveRU = map[string]string{
	ElementAir: "Воздуха", ElementWater: "Воды", ElementFire: "Огня", ElementEarth: "Земли",
}

// AnimalDisplayName 返回动物在指定语言和性别下的展示名称。
// 未知代码原样返回。
func AnimalDisplayName(code, lang, gender string) string {
	switch lang {
	case LangRU:
		forms, ok := animalRU[code]
		if !ok {
			return code
		}
		if gender == GenderFemale {
			return forms[1]
		}
		return forms[0]
	case LangES:
		if name, ok := animalES[code]; ok {
			return name
		}
	case LangPT:
		if name, ok := animalPT[code]; ok {
			return name
		}
	}
	return code
}

// ElementLabel 返回元素在指定语言下的名称，未知语言回退到俄语。
func ElementLabel(code, lang string) string {
	labels, ok := ElementLabels[lang]
	if !ok {
		labels = ElementLabels[LangRU]
	}
	if label, ok := labels[code]; ok {
		return label
	}
	return code
}

// ElementArchetypeLine 返回原型行里使用的元素形式（俄语为属格）。
func ElementArchetypeLine(code, lang string) string {
	if lang == LangRU {
		if g, ok := elementGenitiveRU[code]; ok {
			return g
		}
	}
	return ElementLabel(code, lang)
}

// NormalizeElement 接受元素代码或任意语言下的元素名称，返回元素代码。
// 优先匹配请求语言，其次俄语，最后其余语言；无法识别时返回 false。
func NormalizeElement(value, lang string) (string, bool) {
	if IsElement(value) {
		return value, true
	}
	order := []string{lang, LangRU}
	order = append(order, Languages...)
	for _, l := range order {
		for code, label := range ElementLabels[l] {
			if label == value {
				return code, true
			}
		}
	}
	return "", false
}
