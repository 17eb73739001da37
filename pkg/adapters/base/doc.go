// Package base содержит общие части SQL-адаптеров на database/sql:
// построчное чтение результата в dataset.Row и типовые операции подключения.
package base
