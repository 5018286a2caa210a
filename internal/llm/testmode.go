package llm

import "strings"

// defaultTestResponse answers anything the keyword routing below misses.
const defaultTestResponse = `Это тестовый ответ от агента. В настоящий момент я работаю в тестовом режиме без доступа к API.
Я могу симулировать ответы на типичные запросы. Для полноценной работы потребуется настроить ключи API.`

// cannedResponse pairs a keyword set with the reply it routes to.
type cannedResponse struct {
	keywords []string
	reply    string
}

var cannedResponses = []cannedResponse{
	{
		keywords: []string{"привет", "здравствуй", "добрый день", "доброе утро", "добрый вечер"},
		reply: `Здравствуйте! Я агент, работающий в тестовом режиме.
Чем могу помочь вам сегодня? Обратите внимание, что сейчас я функционирую без доступа к API.`,
	},
	{
		keywords: []string{"новост", "событи", "произошло", "случилось"},
		reply: `В тестовом режиме я не могу предоставить актуальные новости, так как не имею доступа к интернету.
В реальном режиме работы я бы выполнил поиск последних новостей и предоставил вам актуальную информацию.
Пожалуйста, настройте API ключи для полноценной работы.`,
	},
	{
		keywords: []string{"погод", "температур", "осадк", "дожд", "снег"},
		reply: `В тестовом режиме я не могу предоставить актуальный прогноз погоды, так как не имею доступа к метеорологическим данным.
В полноценном режиме я бы выполнил поиск и предоставил вам точную информацию о погоде в указанном регионе.
Для получения реальных данных требуется настройка API ключей.`,
	},
	{
		keywords: []string{"курс", "валют", "доллар", "евро", "акци", "биткоин", "крипто"},
		reply: `В тестовом режиме я не могу предоставить актуальные данные о курсах валют или финансовых рынках.
В полноценном режиме работы я бы получил последние котировки и представил вам актуальную информацию.
Для получения реальных данных требуется настройка API ключей.`,
	},
	{
		keywords: []string{"помо", "умеешь", "можешь", "способ", "функци"},
		reply: `Я - агент, работающий в тестовом режиме. Мои возможности:
1. Имитация ответов на базовые запросы
2. Демонстрация интерфейса взаимодействия
3. Симуляция работы с поисковыми запросами

В полноценном режиме с настроенными API ключами я смогу отвечать на сложные вопросы,
выполнять актуальные поисковые запросы и предоставлять точную информацию по широкому кругу тем.`,
	},
}

// TestResponse generates a canned answer for use when the agent runs without
// API access. Routing is by keyword, first match wins.
func TestResponse(input string) string {
	lower := strings.ToLower(input)
	for _, c := range cannedResponses {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.reply
			}
		}
	}
	return defaultTestResponse
}
