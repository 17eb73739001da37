/*
Package adapters предоставляет единый интерфейс источников наборов данных.

Каждый адаптер регистрируется в глобальной фабрике в своем init():

	func init() {
	    adapters.Register("postgres", func() adapters.Adapter {
	        return &Adapter{}
	    })
	}

Приложение подключает нужные адаптеры пустым импортом и создает их по конфигурации:

	import _ "github.com/ruslano69/tdtp-viewer/pkg/adapters/sqlite"

	adapter, err := adapters.New(ctx, adapters.Config{Type: "sqlite", DSN: "file:app.db"})
	if err != nil {
	    return err
	}
	defer adapter.Close(ctx)

	rows, err := adapter.FetchAll(ctx, "widgets")

Имя набора данных проверяется ValidateName и экранируется по правилам диалекта
перед подстановкой в SELECT * FROM <table>. Строки возвращаются в порядке колонок
результата; значения нормализуются через dataset.Normalize.
*/
package adapters
