// Package topics holds the interview content bank: topic lists per role and
// grade, and example question phrasings per topic and difficulty level.
package topics

import (
	"fmt"
	"sort"
	"strings"
)

// topicsByRole maps role -> grade -> ordered topic identifiers.
var topicsByRole = map[string]map[string][]string{
	"Backend Developer": {
		"Junior": {
			"python_basics",
			"python_data_structures",
			"sql_basics",
			"git_basics",
			"http_basics",
			"oop_basics",
		},
		"Middle": {
			"python_advanced",
			"python_concurrency",
			"sql_optimization",
			"api_design",
			"testing",
			"design_patterns",
			"databases",
		},
		"Senior": {
			"system_design",
			"scalability",
			"security",
			"microservices",
			"performance",
			"team_leadership",
			"architecture",
		},
	},
	"ML Engineer": {
		"Junior": {
			"python_basics",
			"numpy_pandas",
			"ml_basics",
			"statistics_basics",
			"data_preprocessing",
		},
		"Middle": {
			"ml_algorithms",
			"deep_learning",
			"feature_engineering",
			"model_evaluation",
			"ml_pipelines",
		},
		"Senior": {
			"ml_system_design",
			"mlops",
			"distributed_ml",
			"model_optimization",
			"research_methodology",
		},
	},
	"Frontend Developer": {
		"Junior": {
			"html_css_basics",
			"javascript_basics",
			"dom_manipulation",
			"git_basics",
			"responsive_design",
		},
		"Middle": {
			"javascript_advanced",
			"react_basics",
			"state_management",
			"testing_frontend",
			"performance_frontend",
		},
		"Senior": {
			"architecture_frontend",
			"build_tools",
			"accessibility",
			"security_frontend",
			"team_leadership",
		},
	},
}

// questionTemplates maps topic -> difficulty (1-5) -> example questions.
// Not every topic carries templates; ForTopic falls back to the nearest
// difficulty and to a generic phrasing for unknown topics.
var questionTemplates = map[string]map[int][]string{
	"python_basics": {
		1: {
			"Какие базовые типы данных есть в Python?",
			"Что такое переменная в Python?",
			"Как создать список в Python?",
		},
		2: {
			"Чем отличается list от tuple в Python?",
			"Что такое словарь (dict) и для чего он используется?",
			"Как работает индексация в Python?",
		},
		3: {
			"Объясни, как работает цикл for в Python. Приведи пример.",
			"Что такое list comprehension? Когда его стоит использовать?",
			"Как обрабатывать исключения в Python?",
		},
		4: {
			"Что такое генераторы в Python? Чем они отличаются от обычных функций?",
			"Объясни разницу между `is` и `==` в Python.",
			"Как работает механизм управления памятью в Python?",
		},
		5: {
			"Расскажи про GIL и его влияние на многопоточность в Python.",
			"Что такое метаклассы в Python? Приведи пример использования.",
			"Объясни, как работает сборщик мусора в Python.",
		},
	},
	"python_data_structures": {
		1: {
			"Какие структуры данных встроены в Python?",
			"Как добавить элемент в список?",
		},
		2: {
			"Чем set отличается от list?",
			"Когда стоит использовать dict вместо list?",
		},
		3: {
			"Как работает hash-таблица внутри dict?",
			"Какова сложность основных операций со list и dict?",
		},
		4: {
			"Как реализовать LRU-кэш на стандартных структурах Python?",
			"Что такое collections.deque и когда он лучше list?",
		},
		5: {
			"Как устроено разрешение коллизий в словарях Python?",
			"Когда имеет смысл использовать __slots__?",
		},
	},
	"sql_basics": {
		1: {
			"Что такое SQL и для чего он нужен?",
			"Какие основные команды SQL ты знаешь?",
		},
		2: {
			"Чем отличается WHERE от HAVING?",
			"Что делает оператор JOIN?",
		},
		3: {
			"Объясни разницу между INNER JOIN и LEFT JOIN на примере.",
			"Что такое GROUP BY и как он работает с агрегатными функциями?",
		},
		4: {
			"Что такое индексы и как они влияют на производительность?",
			"Чем отличается UNION от UNION ALL?",
		},
		5: {
			"Как бы ты оптимизировал медленный запрос с несколькими JOIN?",
			"Расскажи про уровни изоляции транзакций.",
		},
	},
	"git_basics": {
		1: {
			"Что такое Git и зачем он нужен?",
			"Как сделать коммит?",
		},
		2: {
			"Чем отличается git merge от git rebase?",
			"Что такое ветка в Git?",
		},
		3: {
			"Как разрешить конфликт слияния?",
			"Для чего нужен git stash?",
		},
		4: {
			"Что делает git cherry-pick и когда он полезен?",
			"Как откатить уже запушенный коммит?",
		},
		5: {
			"Расскажи про внутреннее устройство Git: объекты, ссылки, индекс.",
			"Как бы ты организовал git-workflow для команды из десяти человек?",
		},
	},
	"http_basics": {
		1: {
			"Что такое HTTP?",
			"Какие HTTP-методы ты знаешь?",
		},
		2: {
			"Чем GET отличается от POST?",
			"Что означают коды ответа 200, 404, 500?",
		},
		3: {
			"Что такое идемпотентность HTTP-методов?",
			"Как работают cookies и сессии?",
		},
		4: {
			"Чем HTTP/2 отличается от HTTP/1.1?",
			"Как устроен TLS-handshake в общих чертах?",
		},
		5: {
			"Как бы ты спроектировал кэширование на уровне HTTP?",
			"Расскажи про HTTP/3 и QUIC.",
		},
	},
	"oop_basics": {
		1: {
			"Что такое класс и объект?",
			"Назови основные принципы ООП.",
		},
		2: {
			"Что такое наследование? Приведи пример.",
			"Чем инкапсуляция отличается от абстракции?",
		},
		3: {
			"Что такое полиморфизм? Как он выглядит в Python?",
			"Когда композиция лучше наследования?",
		},
		4: {
			"Что такое MRO в Python и как работает множественное наследование?",
			"Расскажи про принципы SOLID.",
		},
		5: {
			"Какие проблемы наследования решают миксины и протоколы?",
			"Как бы ты спроектировал расширяемую иерархию классов для платёжной системы?",
		},
	},
	"python_concurrency": {
		2: {
			"Чем поток отличается от процесса?",
		},
		3: {
			"Что такое GIL и на что он влияет?",
			"Когда стоит использовать multiprocessing вместо threading?",
		},
		4: {
			"Как работает asyncio? Что такое event loop?",
			"Какие проблемы бывают при работе с разделяемым состоянием?",
		},
		5: {
			"Как бы ты спроектировал пул воркеров с ограничением конкурентности?",
			"Расскажи про гонки данных и способы их предотвращения.",
		},
	},
	"api_design": {
		2: {
			"Что такое REST?",
		},
		3: {
			"Как бы ты спроектировал REST API для блога?",
			"Что такое версионирование API и зачем оно нужно?",
		},
		4: {
			"Как организовать пагинацию и фильтрацию в API?",
			"Чем REST отличается от GraphQL? Когда что выбрать?",
		},
		5: {
			"Как проектировать обратносовместимые изменения API?",
			"Расскажи про идемпотентность и ретраи в распределённых API.",
		},
	},
	"security": {
		3: {
			"Что такое XSS и как от него защититься?",
			"Как защититься от SQL injection?",
		},
		4: {
			"Что такое CSRF и какие есть способы защиты?",
		},
		5: {
			"Как организовать безопасное хранение паролей?",
			"Расскажи про OAuth 2.0 и JWT.",
		},
	},
}

// topicDescriptions maps topic identifiers to human-readable names.
var topicDescriptions = map[string]string{
	"python_basics":          "Основы Python",
	"python_data_structures": "Структуры данных Python",
	"python_advanced":        "Продвинутый Python",
	"python_concurrency":     "Многопоточность и асинхронность",
	"sql_basics":             "Основы SQL",
	"sql_optimization":       "Оптимизация SQL",
	"git_basics":             "Основы Git",
	"http_basics":            "HTTP и веб-протоколы",
	"oop_basics":             "ООП",
	"api_design":             "Проектирование API",
	"testing":                "Тестирование",
	"design_patterns":        "Паттерны проектирования",
	"databases":              "Базы данных",
	"system_design":          "Системный дизайн",
	"scalability":            "Масштабирование",
	"security":               "Безопасность",
	"microservices":          "Микросервисы",
	"performance":            "Производительность",
	"team_leadership":        "Лидерство",
	"architecture":           "Архитектура",
}

// ForRole returns the ordered topic list for a role and grade. Unknown roles
// default to Backend Developer; unknown grades default to Junior.
func ForRole(role, grade string) []string {
	roleTopics, ok := topicsByRole[role]
	if !ok {
		roleTopics = topicsByRole["Backend Developer"]
	}
	grades, ok := roleTopics[grade]
	if !ok {
		grades = roleTopics["Junior"]
	}
	out := make([]string, len(grades))
	copy(out, grades)
	return out
}

// ForTopic returns example question phrasings for a topic at the given
// difficulty. Falls back to the nearest available difficulty, and to a
// generic phrasing for topics without templates.
func ForTopic(topic string, difficulty int) []string {
	byDifficulty, ok := questionTemplates[topic]
	if !ok {
		return []string{fmt.Sprintf("Расскажи, что ты знаешь о %s?", Describe(topic))}
	}
	if qs, ok := byDifficulty[difficulty]; ok {
		return qs
	}
	available := make([]int, 0, len(byDifficulty))
	for d := range byDifficulty {
		available = append(available, d)
	}
	sort.Ints(available)
	closest := available[0]
	for _, d := range available {
		if abs(d-difficulty) < abs(closest-difficulty) {
			closest = d
		}
	}
	return byDifficulty[closest]
}

// NextUncovered picks the first topic for the role/grade that has not been
// covered yet. Returns the first topic when everything was covered.
func NextUncovered(role, grade string, covered map[string]bool) string {
	all := ForRole(role, grade)
	for _, t := range all {
		if !covered[t] {
			return t
		}
	}
	return all[0]
}

// Describe returns a human-readable name for a topic identifier.
func Describe(topic string) string {
	if d, ok := topicDescriptions[topic]; ok {
		return d
	}
	return strings.ReplaceAll(topic, "_", " ")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
